package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/deckr/internal/config"
	"github.com/alexisbeaulieu97/deckr/internal/hid"
	"github.com/alexisbeaulieu97/deckr/internal/layout"
	"github.com/alexisbeaulieu97/deckr/internal/logger"
	"github.com/alexisbeaulieu97/deckr/internal/simulator"
	"github.com/alexisbeaulieu97/deckr/internal/state"
	"github.com/alexisbeaulieu97/deckr/internal/telemetry"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
	"github.com/alexisbeaulieu97/deckr/pkg/deckr"
)

type renderOptions struct {
	LayoutPath string
	Serial     string
	Simulate   bool
	Deck       string
	Brightness int
	Fresh      bool
}

func newRenderCmd(root *rootFlags) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <layout-file>",
		Short: "Draw a layout on a Stream Deck and handle key presses until interrupted",
		Long: `Render shows the layout's start page on the first attached Stream Deck (or the
one matching --serial) and keeps running, switching pages and running commands
as keys are pressed. With --simulate the deck is drawn in the terminal instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.LayoutPath = args[0]
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRender(ctx, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Serial, "serial", "", "Serial number of the deck to open")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "Draw the deck in the terminal instead of opening hardware")
	cmd.Flags().StringVar(&opts.Deck, "deck", "", "Simulated deck model: mini, original or xl (defaults to the layout's setting, then original)")
	cmd.Flags().IntVar(&opts.Brightness, "brightness", 0, "Backlight percentage; overrides the layout setting")
	cmd.Flags().BoolVar(&opts.Fresh, "fresh", false, "Ignore the page remembered from the last run")

	return cmd
}

func runRender(ctx context.Context, root *rootFlags, opts renderOptions) error {
	cfg, err := config.ParseConfig(opts.LayoutPath)
	if err != nil {
		return err
	}

	// the simulator owns the terminal, so its logs go to a file
	logOut := os.Stderr
	if opts.Simulate {
		logOut, err = os.OpenFile(filepath.Join(os.TempDir(), "deckr-simulator.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open simulator log: %w", err)
		}
		defer logOut.Close()
	}

	verbose := root.verbose || cfg.Settings.Verbose
	log, err := logger.New(logger.Options{
		Level:         root.logLevel,
		Verbose:       verbose,
		HumanReadable: !root.json && isTerminal(logOut),
		Writer:        logOut,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	log = log.WithFields(map[string]any{"layout": cfg.Name})

	tp, err := telemetry.New(ctx)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error(err, "trace export failed")
		}
	}()

	renderer := deckr.New(deckr.Options{
		Verbose: verbose,
		Logger:  log,
		Tracer:  tp.Tracer(),
	})

	sess := openSession(opts, log)

	if opts.Simulate {
		return renderSimulated(ctx, cfg, renderer, sess, log, opts)
	}
	return renderHardware(ctx, cfg, renderer, sess, log, opts)
}

// session ties a layout file to the page remembered for it.
type session struct {
	store  *state.Store
	layout string
	page   string
}

func openSession(opts renderOptions, log *logger.Logger) session {
	sess := session{layout: opts.LayoutPath}

	path, err := state.DefaultPath()
	if err != nil {
		log.Warn("no cache directory; the current page will not be remembered")
		return sess
	}
	store, err := state.Open(path)
	if err != nil {
		log.Error(err, "could not open session state")
		return sess
	}
	sess.store = store
	if !opts.Fresh {
		sess.page, _ = store.Page(opts.LayoutPath)
	}
	return sess
}

func (s session) remember(log *logger.Logger) func(page string) {
	return func(page string) {
		if s.store == nil {
			return
		}
		if err := s.store.SetPage(s.layout, page); err != nil {
			log.Error(err, "could not save session state")
		}
	}
}

func renderHardware(ctx context.Context, cfg *config.Config, renderer *deckr.Renderer, sess session, log *logger.Logger, opts renderOptions) error {
	device, err := hid.Open(opts.Serial, log)
	if err != nil {
		if errors.Is(err, hid.ErrNoDevice) {
			return fmt.Errorf("%w; use --simulate to preview the layout in the terminal", err)
		}
		return err
	}
	defer device.Close()

	brightness := cfg.Settings.Brightness
	if opts.Brightness > 0 {
		brightness = opts.Brightness
	}
	if brightness > 0 {
		device.SetBrightness(brightness)
	}

	ctrl, err := start(ctx, cfg, renderer, device, sess, log)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	stopRendering(renderer, ctrl, device)
	return nil
}

func renderSimulated(ctx context.Context, cfg *config.Config, renderer *deckr.Renderer, sess session, log *logger.Logger, opts renderOptions) error {
	name := opts.Deck
	if name == "" {
		name = cfg.Settings.Deck
	}
	shape := simulator.Original
	if name != "" {
		var err error
		if shape, err = simulator.LayoutByName(name); err != nil {
			return err
		}
	}

	device := simulator.New(shape)
	ctrl, err := start(ctx, cfg, renderer, device, sess, log)
	if err != nil {
		return err
	}

	err = simulator.Run(ctx, device, cfg.Name)
	stopRendering(renderer, ctrl, device)
	return err
}

func start(ctx context.Context, cfg *config.Config, renderer *deckr.Renderer, device deck.Device, sess session, log *logger.Logger) (*layout.Controller, error) {
	ctrl := layout.New(cfg, renderer, device, layout.Options{
		Logger:       log,
		Debounce:     cfg.Settings.Debounce,
		StartPage:    sess.page,
		OnPageChange: sess.remember(log),
	})
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}
	log.WithFields(map[string]any{"page": ctrl.Page(), "keys": device.KeyCount()}).Info("layout rendered")
	return ctrl, nil
}

func stopRendering(renderer *deckr.Renderer, ctrl *layout.Controller, device deck.Device) {
	renderer.Unmount(device)
	renderer.Wait()
	ctrl.Wait()
}
