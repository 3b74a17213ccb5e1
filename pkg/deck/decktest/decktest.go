// Package decktest provides an in-memory deck.Device that records every call.
package decktest

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/deckr/pkg/color"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
)

// Op identifies a recorded device call.
type Op string

const (
	OpFillColor   Op = "fill_color"
	OpFillBuffer  Op = "fill_buffer"
	OpSubscribe   Op = "subscribe"
	OpUnsubscribe Op = "unsubscribe"
)

// Call is one recorded device interaction.
type Call struct {
	Op     Op
	Index  int
	Color  color.RGB
	Buffer []byte
	Event  deck.EventType
}

// Device records calls and lets tests inject press events and failures.
type Device struct {
	Keys int
	Size int

	// FailColor and FailBuffer, when set, decide the error returned for a fill.
	FailColor  func(index int) error
	FailBuffer func(index int) error

	mu      sync.Mutex
	calls   []Call
	emitter deck.Emitter
}

// New returns a device with the given key count and icon size.
func New(keys, size int) *Device {
	return &Device{Keys: keys, Size: size}
}

// KeyCount implements deck.Device.
func (d *Device) KeyCount() int { return d.Keys }

// IconSize implements deck.Device.
func (d *Device) IconSize() int { return d.Size }

// FillKeyColor implements deck.Device.
func (d *Device) FillKeyColor(index int, r, g, b uint8) error {
	d.record(Call{Op: OpFillColor, Index: index, Color: color.RGB{R: r, G: g, B: b}})
	if d.FailColor != nil {
		return d.FailColor(index)
	}
	return nil
}

// FillKeyBuffer implements deck.Device.
func (d *Device) FillKeyBuffer(ctx context.Context, index int, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record(Call{Op: OpFillBuffer, Index: index, Buffer: append([]byte(nil), buf...)})
	if d.FailBuffer != nil {
		return d.FailBuffer(index)
	}
	return nil
}

// Subscribe implements deck.Device.
func (d *Device) Subscribe(event deck.EventType, fn deck.Listener) deck.Subscription {
	d.record(Call{Op: OpSubscribe, Event: event})
	inner := d.emitter.Subscribe(event, fn)
	return unsubscribeFunc(func() {
		d.record(Call{Op: OpUnsubscribe, Event: event})
		inner.Unsubscribe()
	})
}

// Press emits a down then up event for index.
func (d *Device) Press(index int) {
	d.emitter.Emit(deck.EventDown, index)
	d.emitter.Emit(deck.EventUp, index)
}

// Listeners returns the number of live listeners for event.
func (d *Device) Listeners(event deck.EventType) int {
	return d.emitter.Listeners(event)
}

// Calls returns a copy of all recorded calls.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (d *Device) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CallsFor returns the recorded fill calls for one key.
func (d *Device) CallsFor(index int) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if (c.Op == OpFillColor || c.Op == OpFillBuffer) && c.Index == index {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded calls. Subscriptions stay live.
func (d *Device) Reset() {
	d.mu.Lock()
	d.calls = nil
	d.mu.Unlock()
}

func (d *Device) record(c Call) {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }

var _ deck.Device = (*Device)(nil)
