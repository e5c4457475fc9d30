package intent

import "context"

// Signal is a coalescing wake-up flag used by the chronometer and weather
// modes to sleep until the listener delivers another intent. It is
// independent of the State lock.
type Signal struct {
	ready chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ready: make(chan struct{}, 1)}
}

// Notify sets the flag, waking a waiter if there is one.
func (s *Signal) Notify() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Clear resets the flag without waiting.
func (s *Signal) Clear() {
	select {
	case <-s.ready:
	default:
	}
}

// Wait blocks until the flag is set, then clears it. It returns early only
// if ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
