package bitmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImage_PicksFormatByAlpha(t *testing.T) {
	opaque := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range opaque.Pix {
		opaque.Pix[i] = 0xff
	}
	opaque.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 0xff})

	b := FromImage(opaque, Right)
	require.NoError(t, b.Validate())
	assert.Equal(t, FormatRGB, b.Format)
	assert.Equal(t, 24, b.Format.BitsPerPixel())
	assert.Equal(t, Right, b.Orientation)
	assert.Equal(t, []byte{1, 2, 3}, b.Pix[3:6])

	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	translucent.SetNRGBA(0, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 6})

	b = FromImage(translucent, Up)
	assert.Equal(t, FormatRGBA, b.Format)
	assert.Equal(t, []byte{9, 8, 7, 6}, b.Pix[b.Stride:b.Stride+4])
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 8, 7))
	src.SetGray(5, 5, color.Gray{Y: 77})

	b := FromImage(src, Up)
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, []byte{77, 77, 77}, b.Pix[0:3])
}

func TestBitmap_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bitmap  *Bitmap
		wantErr bool
	}{
		{name: "ok rgb", bitmap: New(4, 3, FormatRGB)},
		{name: "ok rgba", bitmap: New(4, 3, FormatRGBA)},
		{name: "nil", bitmap: nil, wantErr: true},
		{name: "unknown format", bitmap: &Bitmap{Width: 1, Height: 1, Stride: 4, Pix: make([]byte, 4)}, wantErr: true},
		{name: "short buffer", bitmap: &Bitmap{Width: 2, Height: 2, Stride: 6, Format: FormatRGB, Pix: make([]byte, 11)}, wantErr: true},
		{name: "small stride", bitmap: &Bitmap{Width: 2, Height: 1, Stride: 4, Format: FormatRGB, Pix: make([]byte, 8)}, wantErr: true},
		{name: "padded rows", bitmap: &Bitmap{Width: 2, Height: 2, Stride: 8, Format: FormatRGB, Pix: make([]byte, 14)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bitmap.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBufferUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBitmap_NRGBA(t *testing.T) {
	b := &Bitmap{Width: 2, Height: 1, Stride: 8, Format: FormatRGB, Pix: []byte{1, 2, 3, 4, 5, 6, 0, 0}}
	img := b.NRGBA()
	assert.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, img.Pix)
}

func TestMask_Views(t *testing.T) {
	m := NewMask(3, 2)
	m.Pix[4] = 200

	assert.Equal(t, uint8(200), m.At(1, 1))
	assert.Equal(t, uint8(200), m.Gray().GrayAt(1, 1).Y)
	assert.Equal(t, uint8(200), m.Alpha().AlphaAt(1, 1).A)

	c := m.Clone()
	c.Pix[4] = 1
	assert.Equal(t, uint8(200), m.At(1, 1))
	assert.NoError(t, c.Validate())

	assert.ErrorIs(t, (&Mask{Width: 2, Height: 2, Stride: 2, Pix: []byte{1}}).Validate(), ErrBufferUnavailable)
}
