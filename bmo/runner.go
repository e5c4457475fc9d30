// Package bmo implements BMO's render loop: it shows the face for the
// current intent, plays its audio, decides when to move on to the next
// intent, and runs the chronometer and weather modes.
package bmo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nf/bmo/assets"
	"github.com/nf/bmo/audio"
	"github.com/nf/bmo/intent"
	"github.com/nf/bmo/weather"
)

// DefaultTick is the period of the render loop.
const DefaultTick = 100 * time.Millisecond

// Display is where BMO draws.
type Display interface {
	DrawImage(path string) error
	DrawText(s string, size float64) error
}

// Forecaster fetches the current weather.
type Forecaster interface {
	Current(ctx context.Context) (weather.Conditions, error)
}

// Mode is the state of the render loop.
type Mode int

const (
	Displaying Mode = iota
	InChronometer
	InWeather
	Exiting
)

func (m Mode) String() string {
	switch m {
	case Displaying:
		return "displaying"
	case InChronometer:
		return "chronometer"
	case InWeather:
		return "weather"
	case Exiting:
		return "exiting"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Status is reported to Config.Observe whenever the loop changes intent or
// mode.
type Status struct {
	Mode   Mode
	Intent string
}

// AssetError reports an intent that cannot be displayed because the asset
// tables lack an entry for it. It is a configuration error and is never
// recovered from.
type AssetError struct {
	Intent string
	Kind   string // "faces" or "timing"
}

func (e *AssetError) Error() string {
	if e.Kind == "timing" {
		return fmt.Sprintf("no audio or timing found for intent %q", e.Intent)
	}
	return fmt.Sprintf("no %s found for intent %q", e.Kind, e.Intent)
}

type Config struct {
	Tick       time.Duration // defaults to DefaultTick
	AlarmFace  string        // shown when the chronometer runs out
	AlarmSound string        // played when the chronometer runs out
	Weather    Forecaster    // nil disables the weather mode
	Log        zerolog.Logger

	// Observe, if set, is called from the render loop on every change of
	// intent or mode.
	Observe func(Status)

	// Sleep waits for one tick. It defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner drives the display from the intents delivered to a State.
type Runner struct {
	cfg    Config
	st     *intent.State
	sig    *intent.Signal
	disp   Display
	player audio.Player
	sel    *assets.Selector
	log    zerolog.Logger

	wg   sync.WaitGroup // audio goroutines
	errc chan error     // audio failures
}

func New(st *intent.State, sig *intent.Signal, disp Display, player audio.Player, sel *assets.Selector, cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	return &Runner{
		cfg:    cfg,
		st:     st,
		sig:    sig,
		disp:   disp,
		player: player,
		sel:    sel,
		log:    cfg.Log.With().Str("component", "render").Logger(),
		errc:   make(chan error, 1),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) observe(m Mode, name string) {
	if r.cfg.Observe != nil {
		r.cfg.Observe(Status{Mode: m, Intent: name})
	}
}

// resolve maps a received intent to the one that will be displayed.
// It is called with the State lock held.
func (r *Runner) resolve(name string) string {
	switch {
	case name == intent.Chronometer, name == intent.Weather:
		return name
	case r.sel.Known(name):
		return name
	}
	r.log.Warn().Str("intent", name).Msg("unknown intent, showing default")
	return intent.Default
}

// Run runs the render loop until ctx is done, which is a normal exit, or an
// unrecoverable error occurs.
func (r *Runner) Run(ctx context.Context) error {
	defer r.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		active = intent.Default
		face   string
		// The first cycle has already expired, so the first tick picks up
		// a pending intent or the default one.
		c = intent.Cycle{Elapsed: math.MaxInt64}
	)
	for {
		if next, ok := r.st.Advance(c, r.resolve); ok {
			ev := r.log.Info()
			if next == active {
				ev = r.log.Debug()
			}
			ev.Str("from", active).Str("to", next).Msg("new intent")
			active, face = next, ""
			c = intent.Cycle{}
			r.observe(modeFor(active), active)
		}

		var err error
		switch active {
		case intent.Chronometer:
			err = r.chronometer(ctx)
			active = intent.Default
			r.observe(Displaying, active)
		case intent.Weather:
			if r.cfg.Weather == nil {
				r.log.Warn().Msg("asked for weather, but no API key, location and country were given: ignoring")
			} else {
				err = r.weather(ctx)
			}
			active = intent.Default
			r.observe(Displaying, active)
		}
		if ctx.Err() != nil {
			r.observe(Exiting, active)
			return nil
		}
		if err != nil {
			return err
		}

		if face == "" {
			var ok bool
			if face, ok = r.sel.Face(active); !ok {
				return &AssetError{Intent: active, Kind: "faces"}
			}
		}
		if !c.Played {
			if clip, ok := r.sel.Audio(active); ok {
				c.HasAudio = true
				r.play(ctx, clip)
			} else if c.Limit, ok = r.sel.Limit(active); !ok {
				return &AssetError{Intent: active, Kind: "timing"}
			}
			c.Played = true
		}

		select {
		case err := <-r.errc:
			return err
		default:
		}
		if err := r.disp.DrawImage(face); err != nil {
			return fmt.Errorf("intent %q: %w", active, err)
		}
		if err := r.cfg.Sleep(ctx, r.cfg.Tick); err != nil {
			r.observe(Exiting, active)
			return nil
		}
		c.Elapsed += r.cfg.Tick
	}
}

func modeFor(name string) Mode {
	switch name {
	case intent.Chronometer:
		return InChronometer
	case intent.Weather:
		return InWeather
	}
	return Displaying
}

// play starts clip in the background. When it finishes the State is told,
// so that the current cycle can expire.
func (r *Runner) play(ctx context.Context, clip string) {
	r.log.Debug().Str("clip", clip).Msg("playing")
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.player.Play(ctx, clip); err != nil {
			if ctx.Err() == nil {
				select {
				case r.errc <- fmt.Errorf("playing %s: %w", clip, err):
				default:
				}
			}
			return
		}
		r.st.MarkAudioFinished()
	}()
}

// next returns the next intent delivered while a mode is active, sleeping
// on the signal until there is one.
func (r *Runner) next(ctx context.Context) (string, error) {
	for {
		if name, ok := r.st.Take(); ok {
			return name, nil
		}
		if err := r.sig.Wait(ctx); err != nil {
			return "", err
		}
	}
}
