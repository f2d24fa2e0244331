// Package app implements the offset reconciliation core: the half-duplex
// command/event exchange between one client and its servers, independent of
// the data-link layer underneath it (it can run over raw UDP or over
// wire-encrypted frames).
package app

import "github.com/flipflop-proto/flipflop/internal/wire"

// EventKind is the dense small-integer tag distinguishing the three event
// shapes on the wire. Unknown tags are decode failures, never silently
// skipped.
type EventKind uint8

const (
	KindEphemeral EventKind = 0
	KindLogged    EventKind = 1
	KindRecovery  EventKind = 2
)

// Event is the tagged union of the three event shapes a server can hand
// back to a client. Exactly one of the payload fields is meaningful,
// selected by Kind.
type Event[E any] struct {
	Kind EventKind

	// Ephemeral, Logged: Payload carries the domain event value.
	Payload E
	// Logged: Offset is the durable offset the event was appended at.
	Offset uint32

	// Recovery: the window the server currently retains.
	RecoveryStart uint32
	RecoveryEnd   uint32
}

func Ephemeral[E any](payload E) Event[E] {
	return Event[E]{Kind: KindEphemeral, Payload: payload}
}

func Logged[E any](payload E, offset uint32) Event[E] {
	return Event[E]{Kind: KindLogged, Payload: payload, Offset: offset}
}

func Recovery[E any](start, end uint32) Event[E] {
	return Event[E]{Kind: KindRecovery, RecoveryStart: start, RecoveryEnd: end}
}

// Codec lets the offset reconciliation core stay agnostic of the domain
// command/event payload types: the integrator supplies encode/decode for
// their own C and E. DecodeEvent/DecodeCommand report how many bytes of
// the input they consumed so the caller can locate fields that follow
// (e.g. a Logged event's trailing offset).
type Codec[C, E any] interface {
	EncodeCommand(c C) []byte
	DecodeCommand(b []byte) (c C, consumed int, err error)
	EncodeEvent(e E) []byte
	DecodeEvent(b []byte) (e E, consumed int, err error)
}

// CommandRequest is the client-to-server message: the client's current
// offset plus an optional domain command, trailing-optional on the wire
// (the offset is a varint; the command, if any, fills the rest).
type CommandRequest[C any] struct {
	LastEventOffset uint32
	Command         *C
}

// EventReply is the server-to-client message: the age of the chosen event
// plus an optional event, trailing-optional on the wire.
type EventReply[E any] struct {
	DeltaTicks uint64
	Event      *Event[E]
}

// EncodeCommandRequest writes last_event_offset followed by the
// trailing-optional command field. A nil Command omits the field entirely.
func EncodeCommandRequest[C, E any](r CommandRequest[C], codec Codec[C, E]) []byte {
	out := wire.PutUvarint(nil, uint64(r.LastEventOffset))
	if r.Command != nil {
		out = append(out, codec.EncodeCommand(*r.Command)...)
	}
	return out
}

// DecodeCommandRequest reads last_event_offset, then treats any failure
// (including a clean end-of-input) to decode the trailing command as None,
// never as an error — decoders ignore bytes they don't recognize rather than rejecting them.
func DecodeCommandRequest[C, E any](b []byte, codec Codec[C, E]) (CommandRequest[C], error) {
	last, rest, err := wire.TakeUvarint(b)
	if err != nil {
		return CommandRequest[C]{}, err
	}
	req := CommandRequest[C]{LastEventOffset: uint32(last)}
	if len(rest) == 0 {
		return req, nil
	}
	if cmd, _, err := codec.DecodeCommand(rest); err == nil {
		req.Command = &cmd
	}
	return req, nil
}

// EncodeEventReply writes delta_ticks followed by the trailing-optional
// event field.
func EncodeEventReply[C, E any](r EventReply[E], codec Codec[C, E]) []byte {
	out := wire.PutUvarint(nil, r.DeltaTicks)
	if r.Event != nil {
		out = append(out, encodeEvent[C](*r.Event, codec)...)
	}
	return out
}

// DecodeEventReply mirrors DecodeCommandRequest's trailing-optional
// treatment for the event field.
func DecodeEventReply[C, E any](b []byte, codec Codec[C, E]) (EventReply[E], error) {
	delta, rest, err := wire.TakeUvarint(b)
	if err != nil {
		return EventReply[E]{}, err
	}
	reply := EventReply[E]{DeltaTicks: delta}
	if len(rest) == 0 {
		return reply, nil
	}
	if ev, err := decodeEvent[C](rest, codec); err == nil {
		reply.Event = &ev
	}
	return reply, nil
}

func encodeEvent[C, E any](e Event[E], codec Codec[C, E]) []byte {
	switch e.Kind {
	case KindEphemeral:
		out := []byte{byte(KindEphemeral)}
		return append(out, codec.EncodeEvent(e.Payload)...)
	case KindLogged:
		out := []byte{byte(KindLogged)}
		out = append(out, codec.EncodeEvent(e.Payload)...)
		return wire.PutUvarint(out, uint64(e.Offset))
	case KindRecovery:
		out := []byte{byte(KindRecovery)}
		out = wire.PutUvarint(out, uint64(e.RecoveryStart))
		return wire.PutUvarint(out, uint64(e.RecoveryEnd))
	default:
		return nil
	}
}

func decodeEvent[C, E any](b []byte, codec Codec[C, E]) (Event[E], error) {
	if len(b) == 0 {
		return Event[E]{}, errEmptyEvent
	}
	kind := EventKind(b[0])
	rest := b[1:]
	switch kind {
	case KindEphemeral:
		payload, _, err := codec.DecodeEvent(rest)
		if err != nil {
			return Event[E]{}, err
		}
		return Ephemeral(payload), nil
	case KindLogged:
		payload, consumed, err := codec.DecodeEvent(rest)
		if err != nil {
			return Event[E]{}, err
		}
		offset, _, err := wire.TakeUvarint(rest[consumed:])
		if err != nil {
			return Event[E]{}, err
		}
		return Logged(payload, uint32(offset)), nil
	case KindRecovery:
		start, tail, err := wire.TakeUvarint(rest)
		if err != nil {
			return Event[E]{}, err
		}
		end, _, err := wire.TakeUvarint(tail)
		if err != nil {
			return Event[E]{}, err
		}
		return Recovery[E](uint32(start), uint32(end)), nil
	default:
		return Event[E]{}, errUnknownEventTag
	}
}

var (
	errEmptyEvent      = decodeErr("app: empty event")
	errUnknownEventTag = decodeErr("app: unknown event tag")
)

type decodeErr string

func (e decodeErr) Error() string { return string(e) }
