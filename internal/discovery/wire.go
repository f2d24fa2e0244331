package discovery

import "fmt"

// EncodeIdentify serialises id as its raw MinPayloadSize-byte bit-set —
// the whole point of packing one bit per address is that the wire form
// needs no further framing.
func EncodeIdentify(id Identify) []byte {
	out := make([]byte, MinPayloadSize)
	copy(out, id.Addresses[:])
	return out
}

// DecodeIdentify reads back an Identify bit-set. The trailing bytes (if
// any) are ignored, matching the trailing-optional discipline used
// everywhere else on this bus.
func DecodeIdentify(b []byte) (Identify, error) {
	if len(b) < MinPayloadSize {
		return Identify{}, fmt.Errorf("discovery: identify payload too short: %d bytes", len(b))
	}
	var id Identify
	copy(id.Addresses[:], b[:MinPayloadSize])
	return id, nil
}

// EncodeIdentified serialises a server's proposed address and port set as
// two fixed bytes.
func EncodeIdentified(id Identified) []byte {
	return []byte{id.ServerAddress, id.ServerPorts}
}

// DecodeIdentified reads back an Identified reply.
func DecodeIdentified(b []byte) (Identified, error) {
	if len(b) < 2 {
		return Identified{}, fmt.Errorf("discovery: identified payload too short: %d bytes", len(b))
	}
	return Identified{ServerAddress: b[0], ServerPorts: b[1]}, nil
}
