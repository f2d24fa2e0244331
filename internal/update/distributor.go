package update

import (
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/flipflop-proto/flipflop/internal/clock"
)

// Firmware update pacing constants.
const (
	ServerRequestReceiveTime       = 12 * time.Millisecond
	UpdateProcessingTime           = 100 * time.Millisecond
	UpdateBytesProcessingThreshold = 4096
)

// Target is one server the client intends to update: its address (for
// logging/tracking only — the streaming phase itself broadcasts) and the
// ephemeral session key handed to it via PrepareForUpdate. PrepareForUpdate
// itself still goes out under the long-term pre-shared key; Key is what the
// server uses afterward to decrypt the broadcast Update chunk stream, and
// what the caller must build a second AEAD from before calling Stream.
type Target struct {
	Address uint8
	Key     [16]byte
}

// Distributor drives the two phases of a firmware update from the client's side:
// unicast prepare per target, then broadcast streaming. It tracks which
// addresses have been sent a PrepareForUpdate in a bit-set rather than a
// slice so "has this address already been prepared" is an O(1) query
// regardless of how many of the 255 possible servers are targeted.
type Distributor struct {
	clk      clock.Clock
	prepared *bitset.BitSet
}

// NewDistributor creates a Distributor driven by clk (System in
// production, Fake in tests).
func NewDistributor(clk clock.Clock) *Distributor {
	return &Distributor{clk: clk, prepared: bitset.New(256)}
}

// PrepareSink receives one PrepareForUpdate per call together with the
// target it is meant for; the caller encodes, encrypts and sends it over
// the actual transport.
type PrepareSink func(target Target, msg PrepareForUpdate) error

// Prepare sends PrepareForUpdate to every target in order, pausing
// ServerRequestReceiveTime after each send so each server has time to
// process before the next unicast goes out (the preparation
// phase).
func (d *Distributor) Prepare(targets []Target, msg PrepareForUpdate, send PrepareSink) error {
	for _, target := range targets {
		if err := send(target, msg); err != nil {
			return err
		}
		d.prepared.Set(uint(target.Address))
		d.clk.Sleep(ServerRequestReceiveTime)
	}
	return nil
}

// IsPrepared reports whether Prepare has already addressed the given
// server address in this distribution.
func (d *Distributor) IsPrepared(address uint8) bool {
	return d.prepared.Test(uint(address))
}

// ChunkSink receives one Update chunk per call; the caller encodes,
// encrypts and broadcasts it.
type ChunkSink func(chunk Update) error

// Stream walks data in MaxChunkBytes-sized chunks via send, pausing
// UpdateProcessingTime every UpdateBytesProcessingThreshold bytes and
// ServerRequestReceiveTime between chunks within a threshold window
// (the streaming phase).
func (d *Distributor) Stream(data []byte, send ChunkSink) error {
	total := len(data)
	offset := 0
	nextThreshold := min(UpdateBytesProcessingThreshold, total)

	for offset < total {
		end := min(offset+MaxChunkBytes, nextThreshold)
		chunk := Update{ByteOffset: uint32(offset), Bytes: data[offset:end]}
		if err := send(chunk); err != nil {
			return err
		}

		delay := ServerRequestReceiveTime
		if end == nextThreshold {
			nextThreshold = min(nextThreshold+UpdateBytesProcessingThreshold, total)
			delay = UpdateProcessingTime
		}
		d.clk.Sleep(delay)

		offset = end
	}

	d.clk.Sleep(UpdateProcessingTime)
	return nil
}
