// Package deckr renders declarative key trees onto LCD button decks.
//
// A tree is built from LcdKey elements grouped by Fragment:
//
//	deckr.Render(deckr.Fragment(
//		deckr.LcdKeyAt(0, deckr.KeyProps{Color: "#f00", OnPress: stop}),
//		deckr.LcdKeyAt(1, deckr.KeyProps{Image: "icons/mic.png"}),
//	), device)
//
// Each device gets one persistent container. Rendering again reconciles the
// new tree against the keys already on the device; slots without an element
// are filled black.
package deckr

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/alexisbeaulieu97/deckr/internal/element"
	"github.com/alexisbeaulieu97/deckr/internal/imageproc"
	"github.com/alexisbeaulieu97/deckr/internal/logger"
	"github.com/alexisbeaulieu97/deckr/internal/reconciler"
	"github.com/alexisbeaulieu97/deckr/internal/renderer"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
)

// Logger is the structured logger deckr writes to.
type Logger = logger.Logger

// LoggerOptions configures NewLogger.
type LoggerOptions = logger.Options

// NewLogger returns a zerolog backed logger.
func NewLogger(opts LoggerOptions) (*Logger, error) {
	return logger.New(opts)
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return logger.Nop()
}

// ImageLoader turns an image source into a raw RGB buffer of size×size pixels.
type ImageLoader = imageproc.Loader

// Commit summarises one reconciliation pass.
type Commit = reconciler.Commit

// Options configures a Renderer.
type Options struct {
	// Verbose logs every host call at debug level.
	Verbose bool
	// Logger defaults to an info level logger on stderr.
	Logger *Logger
	// OnError receives every render error. Defaults to logging it.
	OnError func(error)
	// Images defaults to decoding files from disk.
	Images ImageLoader
	// Tracer records a span per commit. Defaults to a no-op tracer.
	Tracer trace.Tracer
}

type container = reconciler.Container[deck.Device, KeyProps, *element.LcdKey, *element.Patch, renderer.ChildSet]

// Renderer keeps one container per device.
type Renderer struct {
	bridge  *renderer.Bridge
	engine  *reconciler.Reconciler[deck.Device, KeyProps, *element.LcdKey, *element.Patch, renderer.ChildSet]
	log     *Logger
	onError func(error)
	tracer  trace.Tracer

	mu         sync.Mutex
	containers map[deck.Device]*container
}

// New returns a Renderer.
func New(opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		var err error
		log, err = logger.New(logger.Options{Verbose: opts.Verbose})
		if err != nil {
			log = logger.Nop()
		}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("deckr")
	}

	r := &Renderer{
		log:        log,
		onError:    opts.OnError,
		tracer:     tracer,
		containers: make(map[deck.Device]*container),
	}
	if r.onError == nil {
		r.onError = func(err error) { log.Error(err, "render failed") }
	}

	r.bridge = renderer.New(renderer.Options{
		Verbose: opts.Verbose,
		Logger:  log,
		Images:  opts.Images,
		Tracer:  tracer,
	})
	engine, err := reconciler.New[deck.Device, KeyProps, *element.LcdKey, *element.Patch, renderer.ChildSet](r.bridge)
	if err != nil {
		// the bridge always supports persistence
		panic(err)
	}
	r.engine = engine
	return r
}

var defaultRenderer = sync.OnceValue(func() *Renderer { return New(Options{}) })

// Default returns the renderer used by the package level Render.
func Default() *Renderer {
	return defaultRenderer()
}

// Render draws tree on device with the default renderer.
func Render(tree Element, device deck.Device) {
	Default().Render(tree, device)
}

// Render reconciles tree against what is on device and commits the result.
// The first call for a device creates its container; later calls reuse it.
// Errors are passed to OnError, never returned.
func (r *Renderer) Render(tree Element, device deck.Device) {
	r.commit(context.Background(), tree, device)
}

// RenderContext is Render with a caller supplied context. It also returns
// the commit summary.
func (r *Renderer) RenderContext(ctx context.Context, tree Element, device deck.Device) Commit {
	return r.commit(ctx, tree, device)
}

// RenderAfter submits tree once delay has passed without another RenderAfter
// for the same device.
func (r *Renderer) RenderAfter(tree Element, device deck.Device, delay time.Duration) {
	r.container(device).ScheduleUpdate(context.Background(), tree, delay)
}

// Unmount clears every key on device, releases its press listeners and
// forgets its container.
func (r *Renderer) Unmount(device deck.Device) {
	r.mu.Lock()
	c, ok := r.containers[device]
	delete(r.containers, device)
	r.mu.Unlock()

	if !ok {
		return
	}
	// the container already reported any error to onError
	_ = c.Unmount(context.Background())
}

// Wait blocks until pending image pushes have finished.
func (r *Renderer) Wait() {
	r.bridge.Wait()
}

// Devices returns the number of devices with a live container.
func (r *Renderer) Devices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.containers)
}

func (r *Renderer) container(device deck.Device) *container {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.containers[device]
	if !ok {
		c = r.engine.CreateContainer(device, r.onError)
		r.containers[device] = c
	}
	return c
}

func (r *Renderer) commit(ctx context.Context, tree Element, device deck.Device) Commit {
	ctx, span := r.tracer.Start(ctx, "deckr.commit",
		trace.WithAttributes(attribute.Int("deck.keys", device.KeyCount())))
	defer span.End()

	commit, err := r.container(device).Update(ctx, tree)
	span.SetAttributes(
		attribute.Int("deckr.created", commit.Created),
		attribute.Int("deckr.updated", commit.Updated),
		attribute.Int("deckr.kept", commit.Kept),
		attribute.Int("deckr.deleted", commit.Deleted),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
	}
	return commit
}
