package app

// ClientState tracks one server's offset reconciliation state from the
// client's point of view. Not safe for
// concurrent use; one instance per server the client talks to.
type ClientState[C, E any] struct {
	Last       uint32
	InitMode   bool
	EventCount uint64
}

// NewClientState starts in init mode with a zero offset, matching a client
// that has never talked to this server before.
func NewClientState[C, E any]() *ClientState[C, E] {
	return &ClientState[C, E]{InitMode: true}
}

// NextRequest builds the outgoing CommandRequest for this tick: while in
// init mode the domain command is withheld (None) until the server
// confirms the client is caught up.
func (s *ClientState[C, E]) NextRequest(cmd C) CommandRequest[C] {
	if s.InitMode {
		return CommandRequest[C]{LastEventOffset: s.Last}
	}
	return CommandRequest[C]{LastEventOffset: s.Last, Command: &cmd}
}

// Apply folds a received EventReply into the client's state per spec
// the client-side offset-reconciliation transition table.
func (s *ClientState[C, E]) Apply(reply EventReply[E]) {
	if reply.Event == nil {
		s.InitMode = false
		return
	}

	switch reply.Event.Kind {
	case KindLogged:
		off := reply.Event.Offset
		if off == s.Last+1 {
			s.Last = off
			s.EventCount++
			return
		}
		s.Last = off
		s.EventCount = 0
		s.InitMode = true

	case KindRecovery:
		s.Last = reply.Event.RecoveryStart
		s.EventCount = 0
		s.InitMode = true

	case KindEphemeral:
		// non-durable, carries no offset: does not move last_event_offset.
	}
}
