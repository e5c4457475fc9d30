// Package intent holds the state shared between the intent listener and the
// render loop, and the listener itself.
package intent

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reserved intent names.
const (
	Default     = "default"
	Chronometer = "chronometer"
	Weather     = "weather"
	Done        = "done"
)

// maxPending bounds the number of received but unconsumed intents.
const maxPending = 128

// State is the intent state shared by the listener, the render loop and the
// audio goroutines. All fields are guarded by a single mutex.
type State struct {
	sig *Signal
	log zerolog.Logger

	mu        sync.Mutex
	current   string
	pending   []string
	audioDone bool
}

// NewState returns a State whose current intent is Default. Transitions
// performed by Advance clear sig.
func NewState(sig *Signal, log zerolog.Logger) *State {
	return &State{sig: sig, log: log, current: Default}
}

// Push records a newly received intent.
func (s *State) Push(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == maxPending {
		s.log.Warn().Str("dropped", s.pending[0]).Msg("too many pending intents")
		s.pending = s.pending[1:]
	}
	s.current = name
	s.pending = append(s.pending, name)
}

// Send publishes name to the render loop, then wakes any mode waiting on
// the State's signal. The State is updated before the signal fires so that
// a woken waiter always finds the intent.
func (s *State) Send(name string) {
	s.Push(name)
	if s.sig != nil {
		s.sig.Notify()
	}
}

// Take removes and returns the oldest unconsumed intent.
func (s *State) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", false
	}
	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, true
}

// Current returns the most recently received intent.
func (s *State) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Pending reports whether there are unconsumed intents.
func (s *State) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// MarkAudioFinished records that the clip of the active cycle has finished.
func (s *State) MarkAudioFinished() {
	s.mu.Lock()
	s.audioDone = true
	s.mu.Unlock()
}

// Cycle describes the intent being displayed, as tracked by the render loop.
type Cycle struct {
	HasAudio bool          // the intent has an audio clip
	Played   bool          // the clip has been started
	Elapsed  time.Duration // display time accumulated so far
	Limit    time.Duration // time limit; only used when !HasAudio
}

// Expired reports whether the cycle is finished, given whether its audio has
// finished playing. Audio, when present, always takes precedence over the
// time limit.
func (c Cycle) Expired(audioDone bool) bool {
	if c.HasAudio {
		return c.Played && audioDone
	}
	return c.Elapsed > c.Limit
}

// Advance decides whether the render loop should switch intents. If c has
// expired it returns the next intent and true: Default when nothing is
// pending, or otherwise the oldest pending intent mapped through resolve.
// The expiry check, the choice and the clearing of the audio and signal
// flags all happen in one critical section.
func (s *State) Advance(c Cycle, resolve func(string) string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.Expired(s.audioDone) {
		return "", false
	}
	next := Default
	if len(s.pending) > 0 {
		next = resolve(s.pending[0])
		s.pending = s.pending[1:]
		if s.sig != nil {
			s.sig.Clear()
		}
	}
	s.audioDone = false
	return next, true
}
