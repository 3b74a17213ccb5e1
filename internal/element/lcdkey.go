// Package element holds the stateful host instances deckr keeps per key.
package element

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/deckr/internal/imageproc"
	"github.com/alexisbeaulieu97/deckr/internal/logger"
	"github.com/alexisbeaulieu97/deckr/pkg/color"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// Spawner runs detached work. The renderer passes one that tracks the
// goroutines it starts so callers can wait for pending image pushes.
type Spawner interface {
	Go(fn func())
}

// Options carries the collaborators an instance needs to render.
type Options struct {
	Images  imageproc.Loader
	Logger  *logger.Logger
	Spawner Spawner
}

// LcdKey is the live counterpart of a key descriptor. Its identity is stable
// for the lifetime of a slot: updates mutate it in place.
type LcdKey struct {
	mu         sync.Mutex
	props      Props
	fallback   int
	index      int
	device     deck.Device
	sub        deck.Subscription
	generation uint64

	images  imageproc.Loader
	log     *logger.Logger
	spawner Spawner
}

// NewLcdKey stores props and resolves the key index: props.Position when set,
// else fallback. It performs no device I/O.
func NewLcdKey(props Props, fallback int, opts Options) *LcdKey {
	k := &LcdKey{
		props:    props,
		fallback: fallback,
		images:   opts.Images,
		log:      opts.Logger,
		spawner:  opts.Spawner,
	}
	if k.images == nil {
		k.images = imageproc.New()
	}
	if k.log == nil {
		k.log = logger.Nop()
	}
	if k.spawner == nil {
		k.spawner = goSpawner{}
	}
	k.index = k.resolveIndex()
	return k
}

// Index returns the resolved slot index.
func (k *LcdKey) Index() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.index
}

// Props returns a copy of the current descriptor.
func (k *LcdKey) Props() Props {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.props
}

// Update merges patch into the current descriptor. It performs no I/O.
func (k *LcdKey) Update(patch *Patch) {
	if patch == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.props = patch.Apply(k.props)
	if patch.Has(FieldPosition) {
		k.index = k.resolveIndex()
	}
}

// OnPress runs the press callback when index is this key's index.
func (k *LcdKey) OnPress(index int) {
	k.mu.Lock()
	fn := k.props.OnPress
	match := index == k.index
	k.mu.Unlock()

	if !match || fn == nil {
		return
	}
	fn()
}

// Render synchronises the device with the current descriptor. A color is
// written synchronously and wins over an image. An image is decoded and
// pushed on a detached goroutine; failures there are logged, not returned.
// With neither set the key is left as it is.
func (k *LcdKey) Render(ctx context.Context, device deck.Device) error {
	k.mu.Lock()
	k.device = device
	k.generation++
	gen := k.generation
	k.syncListenerLocked()
	props := k.props
	index := k.index
	k.mu.Unlock()

	log := k.log.WithFields(map[string]any{"key": index})

	if props.Color != "" {
		rgb, err := color.HexToRGB(props.Color)
		if err != nil {
			return err
		}
		if err := device.FillKeyColor(index, rgb.R, rgb.G, rgb.B); err != nil {
			return deckerrors.NewDeviceError("fill color", index, err)
		}
		return nil
	}

	if props.Image != "" {
		ctx = context.WithoutCancel(ctx)
		size := device.IconSize()
		k.spawner.Go(func() {
			buf, err := k.images.Load(ctx, props.Image, size)
			if err != nil {
				log.WithFields(map[string]any{"image": props.Image}).Error(err, "image conversion failed")
				return
			}
			if !k.current(gen) {
				log.Debug("dropping superseded image push")
				return
			}
			if err := device.FillKeyBuffer(ctx, index, buf); err != nil {
				log.Error(deckerrors.NewDeviceError("fill buffer", index, err), "image push failed")
			}
		})
	}

	return nil
}

// Unmount releases the press listener from the last device. It is safe to
// call more than once and before the first render.
func (k *LcdKey) Unmount() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.generation++
	if k.sub != nil {
		k.sub.Unsubscribe()
		k.sub = nil
	}
}

func (k *LcdKey) syncListenerLocked() {
	if k.props.OnPress == nil && k.sub != nil {
		k.sub.Unsubscribe()
		k.sub = nil
	}
	if k.props.OnPress != nil && k.sub == nil && k.device != nil {
		k.sub = k.device.Subscribe(deck.EventDown, k.OnPress)
	}
}

func (k *LcdKey) current(gen uint64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.generation == gen
}

func (k *LcdKey) resolveIndex() int {
	if k.props.Position != nil {
		return *k.props.Position
	}
	return k.fallback
}

type goSpawner struct{}

func (goSpawner) Go(fn func()) { go fn() }
