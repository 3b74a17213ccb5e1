// Package deck defines the device handle deckr renders into.
//
// A Device is created and owned by the caller. deckr only borrows it while
// rendering: it fills keys with flat colors or raw pixel buffers and
// subscribes to press events.
package deck

import (
	"context"
)

// EventType names a key event stream.
type EventType string

const (
	// EventDown fires when a key is pressed.
	EventDown EventType = "down"
	// EventUp fires when a key is released.
	EventUp EventType = "up"
)

// Listener receives the index of the key an event refers to.
type Listener func(index int)

// Subscription is a disposable listener registration.
type Subscription interface {
	Unsubscribe()
}

// Device is an LCD button deck.
type Device interface {
	// KeyCount returns the number of addressable keys.
	KeyCount() int

	// IconSize returns the edge length in pixels of a key image. Key images are square.
	IconSize() int

	// FillKeyColor paints one key with a flat color.
	FillKeyColor(index int, r, g, b uint8) error

	// FillKeyBuffer paints one key with a raw RGB buffer of 3*IconSize()*IconSize() bytes,
	// rows top to bottom. It may block until the device accepted the write.
	FillKeyBuffer(ctx context.Context, index int, buf []byte) error

	// Subscribe registers fn for the given event type until the returned
	// subscription is released.
	Subscribe(event EventType, fn Listener) Subscription
}

// BufferSize returns the length of a raw RGB key buffer for the device.
func BufferSize(d Device) int {
	size := d.IconSize()
	return 3 * size * size
}
