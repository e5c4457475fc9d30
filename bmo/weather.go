package bmo

import (
	"context"

	"github.com/nf/bmo/intent"
)

// weather fetches the current conditions once and shows them until it
// receives "done". A failed fetch is not fatal: BMO goes back to its
// default face.
func (r *Runner) weather(ctx context.Context) error {
	cond, err := r.cfg.Weather.Current(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error().Err(err).Msg("fetching weather")
		}
		return nil
	}
	text := cond.String()
	r.log.Info().Str("weather", text).Msg("showing weather")
	for {
		if err := r.disp.DrawText(text, WeatherTextSize); err != nil {
			return err
		}
		name, err := r.next(ctx)
		if err != nil {
			return err
		}
		if name == intent.Done {
			return nil
		}
	}
}
