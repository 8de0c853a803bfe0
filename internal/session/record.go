package session

import (
	"fmt"
	"time"

	"github.com/Astlaan/whisper-dictate/internal/audio"
	"github.com/Astlaan/whisper-dictate/internal/fsm"
	"github.com/Astlaan/whisper-dictate/internal/pcm"
)

// Session is the one live recording record owned by the controller loop.
type Session struct {
	ID        string
	Phase     fsm.State
	StartedAt time.Time
	Format    pcm.Format
	Capture   audio.Capture
	Buffer    *pcm.Buffer
}

// Validate checks the phase invariants: a capture exists only while
// recording, and start time and format are set in every phase but idle.
func (s *Session) Validate() error {
	recording := s.Phase == fsm.StateRecording
	idle := s.Phase == fsm.StateIdle

	if (s.Capture != nil) != recording {
		return fmt.Errorf("phase %s: capture present=%t", s.Phase, s.Capture != nil)
	}
	if recording && s.Buffer == nil {
		return fmt.Errorf("phase %s: buffer missing", s.Phase)
	}
	if idle && s.Buffer != nil {
		return fmt.Errorf("phase %s: buffer not released", s.Phase)
	}
	if s.StartedAt.IsZero() == !idle {
		return fmt.Errorf("phase %s: started_at set=%t", s.Phase, !s.StartedAt.IsZero())
	}
	if (s.Format == pcm.Format{}) == !idle {
		return fmt.Errorf("phase %s: format set=%t", s.Phase, s.Format != pcm.Format{})
	}
	if idle && s.ID != "" {
		return fmt.Errorf("phase %s: id not cleared", s.Phase)
	}
	return nil
}

// reset returns the record to idle and drops every reference it held.
func (s *Session) reset() {
	*s = Session{Phase: fsm.StateIdle}
}
