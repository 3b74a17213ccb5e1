// Package hid exposes Elgato Stream Deck hardware as a deck.Device.
package hid

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	streamdeck "github.com/SKAARHOJ/go-streamdeck"
	// Registers the known Stream Deck models with the driver.
	_ "github.com/SKAARHOJ/go-streamdeck/devices"

	"github.com/alexisbeaulieu97/deckr/internal/imageproc"
	"github.com/alexisbeaulieu97/deckr/internal/logger"
	"github.com/alexisbeaulieu97/deckr/pkg/deck"
)

// ErrNoDevice is returned when no deck is attached.
var ErrNoDevice = errors.New("no stream deck found")

// driver is the part of *streamdeck.Device the adapter uses.
type driver interface {
	GetNumberOfButtons() uint
	GetImageSize() image.Point
	HasImageCapability() bool
	WriteColorToButton(btnIndex int, colour color.Color) error
	WriteRawImageToButton(btnIndex int, rawImg image.Image) error
	SetBrightness(pct int)
	Close()
}

// Info describes an attached deck.
type Info struct {
	Name      string
	Serial    string
	ProductID uint16
}

// Search lists attached decks.
func Search() []Info {
	found := streamdeck.Search()
	out := make([]Info, 0, len(found))
	for _, d := range found {
		out = append(out, Info{Name: d.Name, Serial: d.Serial, ProductID: d.ProductID})
	}
	return out
}

// Device adapts a driver handle. Writes are serialised; press events are
// fanned out to subscribers on the driver's reader goroutine.
type Device struct {
	mu      sync.Mutex
	drv     driver
	keys    int
	size    int
	emitter deck.Emitter
	log     *logger.Logger
}

var _ deck.Device = (*Device)(nil)

// Open connects to the deck with serial, or the first one found when serial is empty.
func Open(serial string, log *logger.Logger) (*Device, error) {
	if len(Search()) == 0 {
		return nil, ErrNoDevice
	}

	var (
		sd  *streamdeck.Device
		err error
	)
	if serial == "" {
		sd, err = streamdeck.Open()
	} else {
		sd, err = streamdeck.OpenBySerial(serial)
	}
	if err != nil {
		return nil, err
	}

	d := newDevice(sd, log)
	sd.ButtonPress(d.onButton)
	d.log.WithFields(map[string]any{"name": sd.GetName(), "serial": sd.GetSerial(), "keys": d.keys}).Info("stream deck opened")
	return d, nil
}

func newDevice(drv driver, log *logger.Logger) *Device {
	if log == nil {
		log = logger.Nop()
	}
	return &Device{
		drv:  drv,
		keys: int(drv.GetNumberOfButtons()),
		size: drv.GetImageSize().X,
		log:  log,
	}
}

// KeyCount implements deck.Device.
func (d *Device) KeyCount() int { return d.keys }

// IconSize implements deck.Device.
func (d *Device) IconSize() int { return d.size }

// FillKeyColor implements deck.Device.
func (d *Device) FillKeyColor(index int, r, g, b uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drv.WriteColorToButton(index, color.RGBA{R: r, G: g, B: b, A: 0xff})
}

// FillKeyBuffer implements deck.Device. buf holds IconSize² RGB pixels.
func (d *Device) FillKeyBuffer(ctx context.Context, index int, buf []byte) error {
	if !d.drv.HasImageCapability() {
		return errors.New("device has no key displays")
	}
	img, err := imageproc.ToImage(buf, d.size)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drv.WriteRawImageToButton(index, img)
}

// Subscribe implements deck.Device.
func (d *Device) Subscribe(event deck.EventType, fn deck.Listener) deck.Subscription {
	return d.emitter.Subscribe(event, fn)
}

// SetBrightness sets the backlight in percent.
func (d *Device) SetBrightness(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drv.SetBrightness(pct)
}

// Close releases the USB handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drv.Close()
	return nil
}

func (d *Device) onButton(index int, _ *streamdeck.Device, err error, pressed bool) {
	if err != nil {
		d.log.Error(err, "stream deck connection lost")
		return
	}
	if pressed {
		d.emitter.Emit(deck.EventDown, index)
		return
	}
	d.emitter.Emit(deck.EventUp, index)
}
