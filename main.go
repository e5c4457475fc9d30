// Command bmo is the face of a BMO robot. It shows faces and plays sounds
// for the intents sent to it over the network by a controller, and can run
// a chronometer and report the weather.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nf/bmo/assets"
	"github.com/nf/bmo/audio"
	"github.com/nf/bmo/bmo"
	"github.com/nf/bmo/display"
	"github.com/nf/bmo/intent"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bmo: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	cli       bool
	debug     bool
	websocket bool

	screen display.Screen // if set, used instead of a window or terminal
}

func newRootCmd() *cobra.Command {
	var (
		cfg      config
		opts     options
		assetDir string
	)
	cmd := &cobra.Command{
		Use:   "bmo [flags] ADDRESS PORT WIDTH HEIGHT [API_KEY LOCATION COUNTRY]",
		Short: "Show BMO's face, driven by intents received over TCP",
		Long: `bmo listens on ADDRESS:PORT for a single controller that sends intents,
one per line, and shows the matching faces in a WIDTH x HEIGHT window.

The weather intent needs an OpenWeatherMap API_KEY, a LOCATION and a
COUNTRY code. Without all three the weather intent is ignored.

Environment:
  BMO_ASSET_DIR     directory holding the asset tables (default ".")
  BMO_TICK          render loop period (default 100ms)
  BMO_AUDIO_PLAYER  audio player command (default: detect)
  BMO_WEATHER_URL   weather API endpoint
  BMO_LOG_LEVEL     debug, info, warn or error (default info)`,
		Args:          cobra.RangeArgs(4, 7),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseEnv()
			if err != nil {
				return err
			}
			cfg = c
			if cmd.Flags().Changed("assets") {
				cfg.AssetDir = assetDir
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug && opts.cli {
				return errors.New("--debug needs the terminal, so it cannot be used with --cli")
			}
			s, err := parseArgs(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.ErrOrStderr(), cfg, opts, s)
		},
	}
	cmd.PersistentFlags().StringVar(&assetDir, "assets", ".", "asset `dir`ectory (overrides $BMO_ASSET_DIR)")
	cmd.Flags().BoolVar(&opts.cli, "cli", false, "draw in the terminal instead of a window")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "show a debug console in the terminal")
	cmd.Flags().BoolVar(&opts.websocket, "websocket", false, "accept the controller over WebSocket instead of plain TCP")
	cmd.AddCommand(newCheckCmd(&cfg))
	return cmd
}

func run(ctx context.Context, stderr io.Writer, cfg config, opts options, s settings) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		debug *debugView
		sig   = intent.NewSignal()
	)
	tables, err := assets.Load(cfg.AssetDir)
	if err != nil {
		return err
	}
	if err := assets.CheckFixed(cfg.AssetDir); err != nil {
		return fmt.Errorf("fixed assets: %w", err)
	}
	ttf, err := os.ReadFile(filepath.Join(cfg.AssetDir, assets.Font))
	if err != nil {
		return err
	}

	if opts.debug {
		debug = newDebugView(tables.Intents(), cancel)
	}
	out, flush := logOutput(stderr, opts, debug)
	defer flush()
	log, err := newLogger(out, cfg.LogLevel)
	if err != nil {
		return err
	}
	st := intent.NewState(sig, log.With().Str("component", "intent").Logger())
	if debug != nil {
		debug.st = st
	}

	var player *audio.Command
	if cfg.AudioPlayer != "" {
		player, err = audio.ParseCommand(cfg.AudioPlayer)
	} else {
		player, err = audio.Detect()
	}
	if err != nil {
		return err
	}
	log.Debug().Stringer("player", player).Msg("audio")

	var forecaster bmo.Forecaster
	switch {
	case s.weather != nil:
		s.weather.URL = cfg.WeatherURL
		forecaster = s.weather
	case s.partialWeather:
		log.Warn().Msg("weather needs API_KEY, LOCATION and COUNTRY: weather disabled")
	}

	ln, err := intent.Listen(s.addr, opts.websocket, st, log)
	if err != nil {
		return err
	}
	log.Info().Stringer("addr", ln.Addr()).Bool("websocket", opts.websocket).Msg("listening")

	scr := opts.screen
	switch {
	case scr != nil:
	case opts.cli:
		if scr, err = display.NewTerminal(); err != nil {
			return err
		}
	default:
		scr = display.NewWindow(s.size, log)
	}
	renderer, err := display.NewRenderer(scr, s.size, ttf)
	if err != nil {
		return err
	}

	rcfg := bmo.Config{
		Tick:       cfg.Tick,
		AlarmFace:  filepath.Join(cfg.AssetDir, assets.AlarmFace),
		AlarmSound: filepath.Join(cfg.AssetDir, assets.AlarmSound),
		Weather:    forecaster,
		Log:        log,
	}
	if debug != nil {
		rcfg.Observe = debug.Observe
		go func() {
			if err := debug.Run(); err != nil {
				log.Error().Err(err).Msg("debug console")
			}
		}()
		defer debug.Stop()
	}
	runner := bmo.New(st, sig, renderer, player, assets.NewSelector(tables, nil), rcfg)

	var (
		errc   = make(chan error, 2)
		exit   = make(chan struct{})
		result error
	)
	go func() {
		err := ln.Serve(ctx)
		if ctx.Err() == nil {
			errc <- err
		}
	}()
	go func() { errc <- runner.Run(ctx) }()
	go func() {
		select {
		case result = <-errc:
		case <-ctx.Done():
		}
		cancel()
		close(exit)
	}()

	if err := scr.Run(cancel, exit); err != nil {
		cancel()
		<-exit
		return fmt.Errorf("display: %w", err)
	}
	cancel()
	<-exit
	return result
}
