package compose

import (
	"errors"
	"image"
	"math/rand"
	"testing"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBitmap(r *rand.Rand, w, h int, format bitmap.PixelFormat) *bitmap.Bitmap {
	b := bitmap.New(w, h, format)
	r.Read(b.Pix)
	return b
}

func uniformMask(w, h int, v uint8) *bitmap.Mask {
	m := bitmap.NewMask(w, h)
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func compositors() []Compositor {
	return []Compositor{
		NewGraphCompositor(NewDefaultRegistry()),
		NewPixelCompositor(),
	}
}

func pixelAt(b *bitmap.Bitmap, x, y int) []byte {
	i := y*b.Stride + x*b.BytesPerPixel()
	return b.Pix[i : i+b.BytesPerPixel()]
}

func TestComposite_AlphaFollowsMask(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	src := randomBitmap(r, 7, 5, bitmap.FormatRGB)

	ramp := bitmap.NewMask(7, 5)
	r.Read(ramp.Pix)

	tests := []struct {
		name string
		mask *bitmap.Mask
	}{
		{name: "all zero", mask: uniformMask(7, 5, 0)},
		{name: "all 255", mask: uniformMask(7, 5, 255)},
		{name: "random", mask: ramp},
	}

	for _, c := range compositors() {
		for _, tt := range tests {
			t.Run(c.Name()+"/"+tt.name, func(t *testing.T) {
				got, err := c.Composite(src, tt.mask)
				require.NoError(t, err)
				require.Equal(t, bitmap.FormatRGBA, got.Format)
				require.Equal(t, bitmap.Up, got.Orientation)

				for y := 0; y < 5; y++ {
					for x := 0; x < 7; x++ {
						p := pixelAt(got, x, y)
						assert.Equal(t, tt.mask.At(x, y), p[3], "alpha at (%d,%d)", x, y)
						assert.Equal(t, pixelAt(src, x, y), p[:3], "rgb at (%d,%d)", x, y)
					}
				}
			})
		}
	}
}

func TestComposite_DiscardsSourceAlpha(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	src := randomBitmap(r, 6, 4, bitmap.FormatRGBA)
	mask := bitmap.NewMask(6, 4)
	r.Read(mask.Pix)

	for _, c := range compositors() {
		t.Run(c.Name(), func(t *testing.T) {
			got, err := c.Composite(src, mask)
			require.NoError(t, err)
			for y := 0; y < 4; y++ {
				for x := 0; x < 6; x++ {
					p := pixelAt(got, x, y)
					assert.Equal(t, pixelAt(src, x, y)[:3], p[:3])
					assert.Equal(t, mask.At(x, y), p[3])
				}
			}
		})
	}
}

func TestComposite_PaddedStride(t *testing.T) {
	src := &bitmap.Bitmap{
		Width: 2, Height: 2, Stride: 8, Format: bitmap.FormatRGB,
		Pix: []byte{
			1, 2, 3, 4, 5, 6, 0xee, 0xee,
			7, 8, 9, 10, 11, 12, 0xee, 0xee,
		},
	}
	mask := &bitmap.Mask{Width: 2, Height: 2, Stride: 3, Pix: []byte{10, 20, 0xee, 30, 40, 0xee}}

	want := []byte{
		1, 2, 3, 10, 4, 5, 6, 20,
		7, 8, 9, 30, 10, 11, 12, 40,
	}
	for _, c := range compositors() {
		got, err := c.Composite(src, mask)
		require.NoError(t, err, c.Name())
		assert.Equal(t, want, got.Pix, c.Name())
	}
}

func TestComposite_FallbackEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	graph := NewGraphCompositor(NewDefaultRegistry())
	pixel := NewPixelCompositor()

	for _, format := range []bitmap.PixelFormat{bitmap.FormatRGB, bitmap.FormatRGBA} {
		src := randomBitmap(r, 33, 17, format)
		mask := bitmap.NewMask(33, 17)
		r.Read(mask.Pix)

		a, err := graph.Composite(src, mask)
		require.NoError(t, err)
		b, err := pixel.Composite(src, mask)
		require.NoError(t, err)

		assert.Equal(t, b.Width, a.Width)
		assert.Equal(t, b.Height, a.Height)
		assert.Equal(t, b.Pix, a.Pix, "format %s", format)
	}
}

func TestComposite_MaskOfOtherSize(t *testing.T) {
	src := bitmap.New(64, 48, bitmap.FormatRGB)
	mask := uniformMask(320, 320, 128)

	for _, c := range compositors() {
		got, err := c.Composite(src, mask)
		require.NoError(t, err, c.Name())
		assert.Equal(t, 64, got.Width)
		assert.Equal(t, 48, got.Height)
		assert.Equal(t, uint8(128), pixelAt(got, 63, 47)[3])
	}
}

func TestComposite_HalfMaskScenario(t *testing.T) {
	src := bitmap.New(100, 100, bitmap.FormatRGB)
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	mask := bitmap.NewMask(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 50; x++ {
			mask.Pix[y*mask.Stride+x] = 0xff
		}
	}

	for _, c := range compositors() {
		got, err := c.Composite(src, mask)
		require.NoError(t, err)
		require.Equal(t, 100, got.Width)
		require.Equal(t, 100, got.Height)

		for y := 0; y < 100; y++ {
			for x := 0; x < 100; x++ {
				p := pixelAt(got, x, y)
				if x < 50 {
					require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, p, "%s (%d,%d)", c.Name(), x, y)
				} else {
					require.Equal(t, uint8(0), p[3], "%s (%d,%d)", c.Name(), x, y)
				}
			}
		}
	}
}

func TestComposite_BufferUnavailable(t *testing.T) {
	broken := &bitmap.Bitmap{Width: 4, Height: 4, Stride: 12, Format: bitmap.FormatRGB, Pix: make([]byte, 10)}
	for _, c := range compositors() {
		_, err := c.Composite(broken, uniformMask(4, 4, 1))
		assert.ErrorIs(t, err, bitmap.ErrBufferUnavailable, c.Name())

		_, err = c.Composite(bitmap.New(4, 4, bitmap.FormatRGB), &bitmap.Mask{Width: 4, Height: 4, Stride: 4})
		assert.ErrorIs(t, err, bitmap.ErrBufferUnavailable, c.Name())
	}
}

func TestGraphCompositor_FilterProblems(t *testing.T) {
	src := bitmap.New(3, 3, bitmap.FormatRGB)
	mask := uniformMask(3, 3, 9)

	_, err := NewGraphCompositor(NewRegistry()).Composite(src, mask)
	assert.ErrorIs(t, err, ErrFilterUnavailable)

	nothing := NewRegistry()
	nothing.Register(BlendWithMask, "nil", FilterFunc(func(FilterInput) (image.Image, error) { return nil, nil }))
	_, err = NewGraphCompositor(nothing).Composite(src, mask)
	assert.ErrorIs(t, err, ErrNoOutput)

	short := NewRegistry()
	short.Register(BlendWithMask, "short", FilterFunc(func(FilterInput) (image.Image, error) {
		return Clear(image.Rect(0, 0, 2, 2)), nil
	}))
	_, err = NewGraphCompositor(short).Composite(src, mask)
	assert.ErrorIs(t, err, ErrNoOutput)

	boom := errors.New("boom")
	failing := NewRegistry()
	failing.Register(BlendWithMask, "failing", FilterFunc(func(FilterInput) (image.Image, error) { return nil, boom }))
	_, err = NewGraphCompositor(failing).Composite(src, mask)
	assert.ErrorIs(t, err, boom)
}

func TestBlendWithMask_OpaqueBackground(t *testing.T) {
	fg := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(fg.Pix, []byte{200, 100, 0, 0xff})
	bg := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(bg.Pix, []byte{0, 100, 200, 0xff})
	mask := image.NewGray(image.Rect(0, 0, 1, 1))
	mask.Pix[0] = 51

	out, err := blendWithMask(FilterInput{Image: fg, Background: bg, Mask: mask})
	require.NoError(t, err)
	c := out.(nrgbaImage).NRGBAAt(0, 0)
	// 200*0.2 + 0*0.8 = 40, 0*0.2 + 200*0.8 = 160
	assert.Equal(t, uint8(40), c.R)
	assert.Equal(t, uint8(100), c.G)
	assert.Equal(t, uint8(160), c.B)
	assert.Equal(t, uint8(0xff), c.A)

	_, err = blendWithMask(FilterInput{Image: fg})
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, "pixel", Select(NewDefaultRegistry(), PreferPixel).Name())
	assert.Equal(t, "pixel", Select(NewRegistry(), PreferGraph).Name())
	assert.Equal(t, "pixel", Select(nil, PreferGraph).Name())
	assert.Equal(t, "graph+pixel", Select(NewDefaultRegistry(), PreferGraph).Name())
}

func TestWithFallback(t *testing.T) {
	src := bitmap.New(2, 2, bitmap.FormatRGB)
	mask := uniformMask(2, 2, 77)

	nothing := NewRegistry()
	nothing.Register(BlendWithMask, "nil", FilterFunc(func(FilterInput) (image.Image, error) { return nil, nil }))
	c := WithFallback(NewGraphCompositor(nothing), NewPixelCompositor())

	got, err := c.Composite(src, mask)
	require.NoError(t, err)
	assert.Equal(t, uint8(77), got.Pix[3])

	_, err = c.Composite(&bitmap.Bitmap{Width: 2, Height: 2, Format: bitmap.FormatRGB}, mask)
	assert.ErrorIs(t, err, ErrCompositeFailed)
	assert.ErrorIs(t, err, bitmap.ErrBufferUnavailable)
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{BlendWithMask}, r.Names())
	assert.NotEmpty(t, r.Describe(BlendWithMask))

	r.Unregister(BlendWithMask)
	assert.False(t, r.Has(BlendWithMask))
	assert.Empty(t, r.Describe(BlendWithMask))
	assert.True(t, NewDefaultRegistry().Has(BlendWithMask), "default registry must be a fresh copy")
}
