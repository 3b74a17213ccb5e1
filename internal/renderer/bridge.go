// Package renderer adapts the reconciliation engine to a deck device.
package renderer

import (
	"context"
	"errors"
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
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// Host contexts handed out by the bridge.
const (
	ContextDeck   reconciler.HostContext = "deck"
	ContextLcdKey reconciler.HostContext = "lcdKey"
)

// ChildSet is the staged set of instances for one commit, keyed by slot index.
type ChildSet map[int]*element.LcdKey

// Options configures a Bridge.
type Options struct {
	// Verbose logs every host call at debug level.
	Verbose  bool
	Logger   *logger.Logger
	Images   imageproc.Loader
	Registry *Registry
	Tracer   trace.Tracer
}

// Bridge is the host adapter between the reconciler and deck devices.
type Bridge struct {
	verbose  bool
	log      *logger.Logger
	images   imageproc.Loader
	registry *Registry
	tracer   trace.Tracer

	pushes sync.WaitGroup
}

var _ reconciler.HostConfig[deck.Device, element.Props, *element.LcdKey, *element.Patch, ChildSet] = (*Bridge)(nil)

// New returns a Bridge with defaults filled in.
func New(opts Options) *Bridge {
	b := &Bridge{
		verbose:  opts.Verbose,
		log:      opts.Logger,
		images:   opts.Images,
		registry: opts.Registry,
		tracer:   opts.Tracer,
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.images == nil {
		b.images = imageproc.New()
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	if b.tracer == nil {
		b.tracer = noop.NewTracerProvider().Tracer("deckr")
	}
	return b
}

// Go runs fn on a tracked goroutine.
func (b *Bridge) Go(fn func()) {
	b.pushes.Add(1)
	go func() {
		defer b.pushes.Done()
		fn()
	}()
}

// Wait blocks until every detached image push has finished.
func (b *Bridge) Wait() {
	b.pushes.Wait()
}

// Registry returns the element registry the bridge creates instances from.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// tracing reports whether host calls are logged. Callers check it before
// formatting props or patches.
func (b *Bridge) tracing() bool {
	return b.verbose && b.log.DebugEnabled()
}

func (b *Bridge) trace(op string, fields map[string]any) {
	if !b.tracing() {
		return
	}
	b.log.WithFields(fields).Debug(op)
}

func (b *Bridge) SupportsMutation() bool    { return false }
func (b *Bridge) SupportsPersistence() bool { return true }
func (b *Bridge) SupportsHydration() bool   { return false }

// CreateInstance builds the instance for a host element through the registry.
func (b *Bridge) CreateInstance(typ string, props element.Props, _ deck.Device, hostCtx reconciler.HostContext, h reconciler.Handle) (*element.LcdKey, error) {
	if b.tracing() {
		b.trace("createInstance", map[string]any{"type": typ, "props": props.String(), "context": string(hostCtx), "index": h.Index})
	}

	factory, err := b.registry.Lookup(typ)
	if err != nil {
		return nil, err
	}
	return factory(props, h.Index, element.Options{Images: b.images, Logger: b.log, Spawner: b})
}

// CreateTextInstance always fails: a deck has nowhere to show text.
func (b *Bridge) CreateTextInstance(text string, _ deck.Device, _ reconciler.HostContext, _ reconciler.Handle) (*element.LcdKey, error) {
	b.trace("createTextInstance", map[string]any{"text": text})
	return nil, deckerrors.NewConfigurationError(reconciler.TypeText, "text nodes are not supported")
}

func (b *Bridge) FinalizeInitialChildren(*element.LcdKey, string, element.Props, deck.Device, reconciler.HostContext) bool {
	b.trace("finalizeInitialChildren", nil)
	return false
}

func (b *Bridge) ShouldSetTextContent(string, element.Props) bool {
	return false
}

func (b *Bridge) RootHostContext(deck.Device) reconciler.HostContext {
	return ContextDeck
}

func (b *Bridge) ChildHostContext(parent reconciler.HostContext, typ string, _ deck.Device) reconciler.HostContext {
	if typ == element.Type {
		return ContextLcdKey
	}
	return parent
}

// PrepareUpdate diffs the descriptors. A nil patch means nothing changed.
func (b *Bridge) PrepareUpdate(_ *element.LcdKey, typ string, oldProps, newProps element.Props, _ deck.Device, _ reconciler.HostContext) (*element.Patch, bool) {
	patch := element.Diff(oldProps, newProps)
	if b.tracing() {
		b.trace("prepareUpdate", map[string]any{"type": typ, "patch": patch.String()})
	}
	return patch, patch != nil
}

func (b *Bridge) CommitUpdate(inst *element.LcdKey, patch *element.Patch, typ string, _, _ element.Props) {
	if b.tracing() {
		b.trace("commitUpdate", map[string]any{"type": typ, "patch": patch.String()})
	}
	inst.Update(patch)
}

// CloneInstance applies the patch in place. Keys keep their identity across
// commits, so the same pointer is returned.
func (b *Bridge) CloneInstance(inst *element.LcdKey, patch *element.Patch, typ string, _, _ element.Props, _ bool) *element.LcdKey {
	if b.tracing() {
		b.trace("cloneInstance", map[string]any{"type": typ, "patch": patch.String()})
	}
	inst.Update(patch)
	return inst
}

func (b *Bridge) PrepareForCommit(deck.Device) {
	b.trace("prepareForCommit", nil)
}

func (b *Bridge) ResetAfterCommit(deck.Device) {
	b.trace("resetAfterCommit", nil)
}

func (b *Bridge) CreateContainerChildSet(deck.Device) ChildSet {
	b.trace("createContainerChildSet", nil)
	return make(ChildSet)
}

// AppendChildToContainerChildSet stages child under its resolved index. A
// later child with the same index replaces an earlier one.
func (b *Bridge) AppendChildToContainerChildSet(set ChildSet, child *element.LcdKey) {
	index := child.Index()
	if _, taken := set[index]; taken {
		b.log.WithFields(map[string]any{"key": index}).Warn("two elements resolve to the same key; the later one wins")
	}
	b.trace("appendChildToContainerChildSet", map[string]any{"key": index})
	set[index] = child
}

func (b *Bridge) FinalizeContainerChildren(deck.Device, ChildSet) {
	b.trace("finalizeContainerChildren", nil)
}

// ReplaceContainerChildren renders every slot of the device: staged keys
// render themselves, every other slot is filled black. A failing slot does
// not stop the others; the failures are joined.
func (b *Bridge) ReplaceContainerChildren(device deck.Device, set ChildSet) error {
	count := device.KeyCount()
	ctx, span := b.tracer.Start(context.Background(), "deckr.replace_children",
		trace.WithAttributes(
			attribute.Int("deck.keys", count),
			attribute.Int("deck.elements", len(set)),
		))
	defer span.End()

	b.trace("replaceContainerChildren", map[string]any{"keys": count, "elements": len(set)})

	for index := range set {
		if index < 0 || index >= count {
			b.log.WithFields(map[string]any{"key": index, "keys": count}).Warn("element position is outside the device")
		}
	}

	var errs []error
	for index := 0; index < count; index++ {
		if key, ok := set[index]; ok {
			if err := key.Render(ctx, device); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := device.FillKeyColor(index, 0, 0, 0); err != nil {
			errs = append(errs, deckerrors.NewDeviceError("fill color", index, err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
	}
	return err
}

// DetachDeletedInstance releases the instance's device listener.
func (b *Bridge) DetachDeletedInstance(inst *element.LcdKey) {
	b.trace("detachDeletedInstance", map[string]any{"key": inst.Index()})
	inst.Unmount()
}

func (b *Bridge) ScheduleTimeout(fn func(), delay time.Duration) reconciler.TimeoutHandle {
	b.trace("scheduleTimeout", map[string]any{"delay": delay})
	return time.AfterFunc(delay, fn)
}

func (b *Bridge) CancelTimeout(h reconciler.TimeoutHandle) {
	b.trace("cancelTimeout", nil)
	if t, ok := h.(*time.Timer); ok && t != nil {
		t.Stop()
	}
}

func (b *Bridge) NoTimeout() reconciler.TimeoutHandle {
	return nil
}

func (b *Bridge) CurrentEventPriority() reconciler.EventPriority {
	return reconciler.DefaultEventPriority
}

func (b *Bridge) PublicInstance(inst *element.LcdKey) any {
	return inst
}
