package hid

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/deckr/pkg/deck"
)

type fakeDriver struct {
	buttons    uint
	size       int
	noImages   bool
	colors     map[int]color.Color
	images     map[int]image.Image
	brightness int
	closed     bool
	writeErr   error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		buttons: 15,
		size:    72,
		colors:  map[int]color.Color{},
		images:  map[int]image.Image{},
	}
}

func (f *fakeDriver) GetNumberOfButtons() uint   { return f.buttons }
func (f *fakeDriver) GetImageSize() image.Point { return image.Pt(f.size, f.size) }
func (f *fakeDriver) HasImageCapability() bool  { return !f.noImages }
func (f *fakeDriver) SetBrightness(pct int)     { f.brightness = pct }
func (f *fakeDriver) Close()                    { f.closed = true }

func (f *fakeDriver) WriteColorToButton(i int, c color.Color) error {
	f.colors[i] = c
	return f.writeErr
}

func (f *fakeDriver) WriteRawImageToButton(i int, img image.Image) error {
	f.images[i] = img
	return f.writeErr
}

func TestDeviceReportsGeometry(t *testing.T) {
	t.Parallel()

	d := newDevice(newFakeDriver(), nil)
	require.Equal(t, 15, d.KeyCount())
	require.Equal(t, 72, d.IconSize())
}

func TestFillKeyColorWritesOpaqueColor(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	d := newDevice(drv, nil)

	require.NoError(t, d.FillKeyColor(3, 10, 20, 30))
	require.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 0xff}, drv.colors[3])

	drv.writeErr = errors.New("hid write failed")
	require.ErrorContains(t, d.FillKeyColor(3, 0, 0, 0), "hid write failed")
}

func TestFillKeyBufferConvertsRawRGB(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	drv.size = 2
	d := newDevice(drv, nil)

	buf := []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 9, 9, 9}
	require.NoError(t, d.FillKeyBuffer(context.Background(), 1, buf))

	img := drv.images[1]
	require.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	r, g, b, _ := img.At(1, 0).RGBA()
	require.Equal(t, []uint32{0, 0xffff, 0}, []uint32{r, g, b})

	require.Error(t, d.FillKeyBuffer(context.Background(), 1, buf[:3]))
}

func TestFillKeyBufferRespectsContextAndCapability(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	drv.size = 1
	d := newDevice(drv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.FillKeyBuffer(ctx, 0, []byte{1, 2, 3}), context.Canceled)
	require.Empty(t, drv.images)

	drv.noImages = true
	require.Error(t, d.FillKeyBuffer(context.Background(), 0, []byte{1, 2, 3}))
}

func TestButtonEventsReachSubscribers(t *testing.T) {
	t.Parallel()

	d := newDevice(newFakeDriver(), nil)

	var downs, ups []int
	sub := d.Subscribe(deck.EventDown, func(i int) { downs = append(downs, i) })
	d.Subscribe(deck.EventUp, func(i int) { ups = append(ups, i) })

	d.onButton(4, nil, nil, true)
	d.onButton(4, nil, nil, false)
	d.onButton(2, nil, errors.New("unplugged"), false)

	sub.Unsubscribe()
	d.onButton(5, nil, nil, true)

	require.Equal(t, []int{4}, downs)
	require.Equal(t, []int{4}, ups)
}

func TestBrightnessIsClampedAndCloseReleases(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver()
	d := newDevice(drv, nil)

	d.SetBrightness(140)
	require.Equal(t, 100, drv.brightness)
	d.SetBrightness(-5)
	require.Zero(t, drv.brightness)

	require.NoError(t, d.Close())
	require.True(t, drv.closed)
}
