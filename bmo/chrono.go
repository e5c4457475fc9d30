package bmo

import (
	"context"
	"fmt"
	"time"

	"github.com/nf/bmo/intent"
)

// Text sizes, in points.
const (
	ChronometerTextSize = 128
	WeatherTextSize     = 30
)

// adjustments are the intents understood while setting the chronometer.
var adjustments = map[string]time.Duration{
	"5more":  5 * time.Minute,
	"10more": 10 * time.Minute,
	"20more": 20 * time.Minute,
	"5less":  -5 * time.Minute,
	"10less": -10 * time.Minute,
	"20less": -20 * time.Minute,
}

// Adjust applies the adjustment intent name to d. Results below zero are
// clamped to zero, and names that are not adjustments leave d unchanged.
func Adjust(d time.Duration, name string) time.Duration {
	delta, ok := adjustments[name]
	if !ok {
		return d
	}
	if d += delta; d < 0 {
		return 0
	}
	return d
}

// Clock formats d as hh:mm:ss, truncated to whole seconds.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// chronometer lets the user set a duration, counts it down and sounds the
// alarm.
func (r *Runner) chronometer(ctx context.Context) error {
	d, err := r.setTimer(ctx)
	if err != nil {
		return err
	}
	r.log.Info().Stringer("duration", d).Msg("chronometer started")
	return r.countdown(ctx, d)
}

// setTimer shows the duration being set and applies adjustments until it
// receives "done". Other intents are ignored.
func (r *Runner) setTimer(ctx context.Context) (time.Duration, error) {
	var d time.Duration
	for {
		if err := r.disp.DrawText(Clock(d), ChronometerTextSize); err != nil {
			return 0, err
		}
		name, err := r.next(ctx)
		if err != nil {
			return 0, err
		}
		if name == intent.Done {
			return d, nil
		}
		if _, ok := adjustments[name]; !ok {
			r.log.Debug().Str("intent", name).Msg("ignored while setting chronometer")
		}
		d = Adjust(d, name)
	}
}

// countdown shows the remaining time once per tick until it reaches zero,
// then shows the alarm face and plays the alarm sound to completion.
// Intents received meanwhile wait in the queue.
func (r *Runner) countdown(ctx context.Context, d time.Duration) error {
	for remaining := d; ; {
		if err := r.disp.DrawText(Clock(remaining), ChronometerTextSize); err != nil {
			return err
		}
		if remaining <= 0 {
			break
		}
		if err := r.cfg.Sleep(ctx, r.cfg.Tick); err != nil {
			return err
		}
		remaining = max(remaining-r.cfg.Tick, 0)
	}
	r.log.Info().Msg("chronometer finished")
	if err := r.disp.DrawImage(r.cfg.AlarmFace); err != nil {
		return fmt.Errorf("alarm face: %w", err)
	}
	if err := r.player.Play(ctx, r.cfg.AlarmSound); err != nil {
		return fmt.Errorf("alarm sound: %w", err)
	}
	return nil
}
