package update

// State is the server-side update state machine's current phase: Idle, or
// Updating once a PrepareForUpdate lands. There is no separate Preparing
// state; it collapses into the transition performed by HandlePrepare, since
// nothing can observe a server sitting in Preparing between receiving
// PrepareForUpdate and committing to Updating or Idle.
type State uint8

const (
	Idle State = iota
	Updating
)

func (s State) String() string {
	if s == Updating {
		return "updating"
	}
	return "idle"
}

// CommitFunc is called by ServerUpdateState whenever a threshold window
// (or the final chunk) completes, so the caller can flush buffered bytes
// to durable storage. buf holds every byte received so far.
type CommitFunc func(buf []byte)

// ServerUpdateState is one server's update machine. Not safe for
// concurrent use.
type ServerUpdateState struct {
	CurrentVersion Version
	Commit         CommitFunc

	state          State
	key            UpdateKey
	byteLen        uint32
	nextByteOffset uint32
	buf            []byte
}

// NewServerUpdateState creates a machine starting in Idle at the given
// firmware version.
func NewServerUpdateState(currentVersion Version, commit CommitFunc) *ServerUpdateState {
	return &ServerUpdateState{CurrentVersion: currentVersion, Commit: commit}
}

// State reports the machine's current phase.
func (s *ServerUpdateState) State() State { return s.state }

// HandlePrepare processes a PrepareForUpdate. A version
// that is not strictly greater than CurrentVersion is silently ignored —
// no error, no state change.
func (s *ServerUpdateState) HandlePrepare(msg PrepareForUpdate) {
	if !msg.Version.GreaterThan(s.CurrentVersion) {
		return
	}
	s.state = Updating
	s.key = msg.UpdateKey
	s.byteLen = msg.UpdateByteLen
	s.nextByteOffset = 0
	s.buf = make([]byte, 0, msg.UpdateByteLen)
}

// Key returns the AEAD key the caller should decrypt incoming Update
// chunks with, valid only while State() == Updating.
func (s *ServerUpdateState) Key() UpdateKey { return s.key }

// HandleChunk processes one Update chunk against the server's update state machine:
// an offset mismatch aborts back to Idle discarding buffered progress;
// otherwise the chunk is appended and, at a threshold boundary or at
// completion, Commit is invoked. Returns true if the update completed.
func (s *ServerUpdateState) HandleChunk(chunk Update) (complete bool) {
	if s.state != Updating {
		return false
	}

	if chunk.ByteOffset != s.nextByteOffset {
		s.abort()
		return false
	}

	s.buf = append(s.buf, chunk.Bytes...)
	s.nextByteOffset += uint32(len(chunk.Bytes))

	switch {
	case s.nextByteOffset == s.byteLen:
		if s.Commit != nil {
			s.Commit(s.buf)
		}
		s.state = Idle
		return true
	case s.nextByteOffset%UpdateBytesProcessingThreshold == 0:
		if s.Commit != nil {
			s.Commit(s.buf)
		}
	}
	return false
}

func (s *ServerUpdateState) abort() {
	s.state = Idle
	s.buf = nil
	s.nextByteOffset = 0
}
