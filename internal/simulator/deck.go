// Package simulator is a terminal stand-in for a Stream Deck.
package simulator

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexisbeaulieu97/deckr/internal/imageproc"
	"github.com/alexisbeaulieu97/deckr/pkg/color"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
)

// Layout is a physical deck shape.
type Layout struct {
	Name     string
	Columns  int
	Rows     int
	IconSize int
}

// Known layouts.
var (
	Mini     = Layout{Name: "mini", Columns: 3, Rows: 2, IconSize: 80}
	Original = Layout{Name: "original", Columns: 5, Rows: 3, IconSize: 72}
	XL       = Layout{Name: "xl", Columns: 8, Rows: 4, IconSize: 96}
)

// LayoutByName looks up one of the known layouts.
func LayoutByName(name string) (Layout, error) {
	for _, l := range []Layout{Mini, Original, XL} {
		if l.Name == name {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("unknown deck layout %q (want mini, original or xl)", name)
}

// Keys returns the number of keys in the layout.
func (l Layout) Keys() int { return l.Columns * l.Rows }

// Slot is what one simulated key currently shows.
type Slot struct {
	Color color.RGB
	// Image is true when the key shows a pushed buffer; Color is then its average.
	Image bool
	// Written is false until the key has been filled at least once.
	Written bool
}

// Deck implements deck.Device in memory and notifies a viewer of changes.
type Deck struct {
	layout Layout

	mu      sync.RWMutex
	slots   []Slot
	emitter deck.Emitter
	changes chan struct{}
}

var _ deck.Device = (*Deck)(nil)

// New returns a blank simulated deck.
func New(layout Layout) *Deck {
	return &Deck{
		layout:  layout,
		slots:   make([]Slot, layout.Keys()),
		changes: make(chan struct{}, 1),
	}
}

// Layout returns the deck shape.
func (d *Deck) Layout() Layout { return d.layout }

// KeyCount implements deck.Device.
func (d *Deck) KeyCount() int { return d.layout.Keys() }

// IconSize implements deck.Device.
func (d *Deck) IconSize() int { return d.layout.IconSize }

// FillKeyColor implements deck.Device.
func (d *Deck) FillKeyColor(index int, r, g, b uint8) error {
	return d.set(index, Slot{Color: color.RGB{R: r, G: g, B: b}, Written: true})
}

// FillKeyBuffer implements deck.Device. The key shows the buffer's average color.
func (d *Deck) FillKeyBuffer(ctx context.Context, index int, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	size := d.layout.IconSize
	if len(buf) != 3*size*size {
		return fmt.Errorf("buffer length %d does not match %dx%d RGB", len(buf), size, size)
	}
	avg := imageproc.Average(buf)
	return d.set(index, Slot{Color: color.RGB{R: avg.R, G: avg.G, B: avg.B}, Image: true, Written: true})
}

// Subscribe implements deck.Device.
func (d *Deck) Subscribe(event deck.EventType, fn deck.Listener) deck.Subscription {
	return d.emitter.Subscribe(event, fn)
}

// Press emits a down then an up event for index.
func (d *Deck) Press(index int) {
	d.emitter.Emit(deck.EventDown, index)
	d.emitter.Emit(deck.EventUp, index)
}

// Slots returns a snapshot of every key.
func (d *Deck) Slots() []Slot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Slot(nil), d.slots...)
}

// Changes signals after any key changed. Signals coalesce.
func (d *Deck) Changes() <-chan struct{} {
	return d.changes
}

func (d *Deck) set(index int, s Slot) error {
	if index < 0 || index >= len(d.slots) {
		return fmt.Errorf("key %d out of range [0,%d)", index, len(d.slots))
	}
	d.mu.Lock()
	d.slots[index] = s
	d.mu.Unlock()

	select {
	case d.changes <- struct{}{}:
	default:
	}
	return nil
}
