package discovery

import (
	"time"

	"github.com/flipflop-proto/flipflop/internal/clock"
	"github.com/flipflop-proto/flipflop/internal/randsrc"
)

// Address-discovery timing constants.
const (
	ClientTimeWindow  = 1000 * time.Millisecond
	ServerReplyWindow = 900 * time.Millisecond
)

// ClientRound holds the client side of one round of address discovery: the
// caller broadcasts Known as an Identify and collects Identified replies for
// ClientTimeWindow, and Tally folds them into the running bit-set. Collisions
// (≥2 replies claiming the same address in one round) leave that address
// unassigned for the next round.
type ClientRound struct {
	Known Identify
}

// NewClientRound starts a round from the given known-address state.
func NewClientRound(known Identify) *ClientRound {
	return &ClientRound{Known: known}
}

// RoundResult summarises a single collection window's outcome.
type RoundResult struct {
	// Assigned holds the addresses that received exactly one reply this
	// round and are now considered confirmed.
	Assigned []Identified
	// Collided holds the addresses that received two or more replies,
	// discarded and left free for the next round.
	Collided []uint8
	// Clean is true when the round produced no collision — the
	// round-repetition loop's stop condition. A round with only fresh,
	// uncontested assignments (or no replies at all) is Clean.
	Clean bool
}

// Tally folds a batch of replies collected during one window into the
// round's outcome and updates Known in place for every address that
// resolved without collision.
func (r *ClientRound) Tally(replies []Identified) RoundResult {
	counts := make(map[uint8][]Identified)
	for _, reply := range replies {
		counts[reply.ServerAddress] = append(counts[reply.ServerAddress], reply)
	}

	var result RoundResult
	for addr, rs := range counts {
		switch len(rs) {
		case 1:
			r.Known.SetAddress(addr)
			result.Assigned = append(result.Assigned, rs[0])
		default:
			result.Collided = append(result.Collided, addr)
		}
	}
	result.Clean = len(result.Collided) == 0
	return result
}

// ServerResponder is the server side of address discovery: given a broadcast
// Identify, decide whether to stay silent (already known) or pick a
// candidate address and reply after a random delay within
// ServerReplyWindow.
type ServerResponder struct {
	Assigned    *uint8 // nil until the server has picked/been confirmed an address
	ServerPorts uint8
	rng         randsrc.Source
	clk         clock.Clock
}

// NewServerResponder creates a responder for a server offering the given
// port bitmask.
func NewServerResponder(serverPorts uint8, rng randsrc.Source, clk clock.Clock) *ServerResponder {
	return &ServerResponder{ServerPorts: serverPorts, rng: rng, clk: clk}
}

// HandleBroadcast processes one client broadcast. If the server already
// has an assigned address and the client's bit-set confirms it, the
// server stays silent (ok=false). Otherwise it picks a
// fresh candidate, delays by a uniform random interval within
// ServerReplyWindow via clk.Sleep, and returns the reply to transmit.
func (s *ServerResponder) HandleBroadcast(known Identify) (Identified, bool) {
	if s.Assigned != nil && known.IsAddressSet(*s.Assigned) {
		return Identified{}, false
	}

	candidate, ok := WithRandomAddress(&known, s.rng, s.ServerPorts)
	if !ok {
		return Identified{}, false
	}

	delay := time.Duration(s.rng.UintN(uint32(ServerReplyWindow/time.Millisecond))) * time.Millisecond
	s.clk.Sleep(delay)

	addr := candidate.ServerAddress
	s.Assigned = &addr
	return candidate, true
}
