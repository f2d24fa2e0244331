package app

import (
	"testing"
	"time"
)

func TestClientStateAdvancesOnStrictNext(t *testing.T) {
	s := NewClientState[string, string]()
	s.InitMode = false
	s.Last = 5

	ev := Logged("e", 6)
	s.Apply(EventReply[string]{Event: &ev})
	if s.Last != 6 || s.EventCount != 1 || s.InitMode {
		t.Fatalf("unexpected state after strict-next logged event: %+v", s)
	}
}

func TestClientStateResetsOnNonStrictNext(t *testing.T) {
	s := NewClientState[string, string]()
	s.InitMode = false
	s.Last = 5
	s.EventCount = 3

	ev := Logged("e", 40)
	s.Apply(EventReply[string]{Event: &ev})
	if s.Last != 40 || s.EventCount != 0 || !s.InitMode {
		t.Fatalf("unexpected state after offset jump: %+v", s)
	}
}

func TestClientStateRecoveryResets(t *testing.T) {
	s := NewClientState[string, string]()
	s.InitMode = false
	s.Last = 100
	s.EventCount = 7

	ev := Recovery[string](5, 7)
	s.Apply(EventReply[string]{Event: &ev})
	if s.Last != 5 || s.EventCount != 0 || !s.InitMode {
		t.Fatalf("unexpected state after recovery: %+v", s)
	}
}

func TestClientStateNoneClearsInitMode(t *testing.T) {
	s := NewClientState[string, string]()
	s.Apply(EventReply[string]{Event: nil})
	if s.InitMode {
		t.Fatalf("expected init_mode to clear on None reply")
	}
}

func TestClientStateEphemeralDoesNotMoveOffset(t *testing.T) {
	s := NewClientState[string, string]()
	s.InitMode = false
	s.Last = 9

	ev := Ephemeral("ping")
	s.Apply(EventReply[string]{Event: &ev})
	if s.Last != 9 {
		t.Fatalf("ephemeral event moved last_event_offset to %d", s.Last)
	}
}

func TestClientStateNextRequestWithholdsCommandInInitMode(t *testing.T) {
	s := NewClientState[string, string]()
	req := s.NextRequest("domain-cmd")
	if req.Command != nil {
		t.Fatalf("expected nil command while in init mode, got %v", *req.Command)
	}

	s.InitMode = false
	req = s.NextRequest("domain-cmd")
	if req.Command == nil || *req.Command != "domain-cmd" {
		t.Fatalf("expected command present once init mode cleared, got %+v", req)
	}
}

func TestOffsetProgressScenario(t *testing.T) {
	now := time.Unix(0, 0)
	log := NewServerLog[string](0)
	log.Append("e", 5, now)
	log.Append("e", 6, now)
	log.Append("e", 7, now)

	client := NewClientState[string, string]()
	client.InitMode = false
	client.Last = 5

	for client.Last < 7 {
		reply := log.Reply(client.Last, now)
		client.Apply(reply)
	}

	if client.Last != 7 || client.EventCount != 2 {
		t.Fatalf("expected to converge at offset 7 with event_count 2, got last=%d count=%d", client.Last, client.EventCount)
	}
}
