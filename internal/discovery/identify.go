// Package discovery implements collision-avoiding address assignment for
// servers joining a network: a single client knows which
// of the 256 addresses are taken via a bit-set, and unidentified servers
// pick a free address at random, racing the chance of a collision.
package discovery

import "github.com/flipflop-proto/flipflop/internal/randsrc"

// MaxAddresses is the size of the address space; address 0 is always
// reserved for the client.
const MaxAddresses = 256

const addressesPerByte = 8 // CANNOT CHANGE: the wire payload packs one bit per address.

// MinPayloadSize is the byte size of the packed Identify bit-set.
const MinPayloadSize = MaxAddresses / addressesPerByte

// Identify is the bit-set a client broadcasts: bit i set means the client
// already knows a server has claimed address i. Bit 0 is always set
// (the client reserves address 0 for itself).
type Identify struct {
	Addresses [MinPayloadSize]byte
}

// NewIdentify returns an Identify with only address 0 (the client) taken.
func NewIdentify() Identify {
	var id Identify
	id.SetAddress(0)
	return id
}

// IsAddressSet reports whether address is known to the client. Every uint8
// value is a valid address, so this never panics.
func (id *Identify) IsAddressSet(address uint8) bool {
	return id.Addresses[int(address)/addressesPerByte]&(1<<(address%addressesPerByte)) != 0
}

// SetAddress records that address has been claimed.
func (id *Identify) SetAddress(address uint8) {
	id.Addresses[int(address)/addressesPerByte] |= 1 << (address % addressesPerByte)
}

// FreeAddresses returns every address not yet marked taken, in ascending
// order.
func (id *Identify) FreeAddresses() []uint8 {
	free := make([]uint8, 0, MaxAddresses)
	for a := 0; a < MaxAddresses; a++ {
		if !id.IsAddressSet(uint8(a)) {
			free = append(free, uint8(a))
		}
	}
	return free
}

// Identified is a server's proposed address plus the ports it serves.
type Identified struct {
	ServerAddress uint8
	ServerPorts   uint8
}

// WithRandomAddress picks a candidate address uniformly at random from the
// addresses not yet marked in id, via rng.UintN — the server side of
// a discovery round. ok is false if no addresses remain.
func WithRandomAddress(id *Identify, rng randsrc.Source, serverPorts uint8) (Identified, bool) {
	free := id.FreeAddresses()
	if len(free) == 0 {
		return Identified{}, false
	}
	j := rng.UintN(uint32(len(free)))
	return Identified{ServerAddress: free[j], ServerPorts: serverPorts}, true
}
