package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 3x2 的测试图，R 通道编码坐标：row0 = 0 1 2, row1 = 10 11 12
func gridBitmap(format PixelFormat, o Orientation) *Bitmap {
	b := New(3, 2, format)
	bpp := b.BytesPerPixel()
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			i := y*b.Stride + x*bpp
			b.Pix[i] = uint8(10*y + x)
			b.Pix[i+1] = uint8(10*y + x + 100)
			b.Pix[i+2] = 200
			if bpp == 4 {
				b.Pix[i+3] = uint8(50 + 10*y + x)
			}
		}
	}
	b.Orientation = o
	return b
}

func redRows(b *Bitmap) [][]uint8 {
	rows := make([][]uint8, b.Height)
	for y := 0; y < b.Height; y++ {
		rows[y] = make([]uint8, b.Width)
		for x := 0; x < b.Width; x++ {
			rows[y][x] = b.Pix[y*b.Stride+x*b.BytesPerPixel()]
		}
	}
	return rows
}

func TestNormalize_Orientations(t *testing.T) {
	tests := []struct {
		name        string
		orientation Orientation
		want        [][]uint8
	}{
		{name: "upMirrored", orientation: UpMirrored, want: [][]uint8{{2, 1, 0}, {12, 11, 10}}},
		{name: "down", orientation: Down, want: [][]uint8{{12, 11, 10}, {2, 1, 0}}},
		{name: "downMirrored", orientation: DownMirrored, want: [][]uint8{{10, 11, 12}, {0, 1, 2}}},
		{name: "leftMirrored", orientation: LeftMirrored, want: [][]uint8{{0, 10}, {1, 11}, {2, 12}}},
		{name: "right", orientation: Right, want: [][]uint8{{10, 0}, {11, 1}, {12, 2}}},
		{name: "rightMirrored", orientation: RightMirrored, want: [][]uint8{{12, 2}, {11, 1}, {10, 0}}},
		{name: "left", orientation: Left, want: [][]uint8{{2, 12}, {1, 11}, {0, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gridBitmap(FormatRGB, tt.orientation)
			dw, dh := src.DisplaySize()

			got := Normalize(src)
			require.NotNil(t, got)
			assert.Equal(t, Up, got.Orientation)
			assert.Equal(t, FormatRGB, got.Format)
			assert.Equal(t, dw, got.Width)
			assert.Equal(t, dh, got.Height)
			assert.Equal(t, tt.want, redRows(got))
			assert.Equal(t, tt.orientation, src.Orientation, "source must not be mutated")
		})
	}
}

func TestNormalize_KeepsAlphaForRGBA(t *testing.T) {
	src := gridBitmap(FormatRGBA, Down)
	got := Normalize(src)

	require.Equal(t, FormatRGBA, got.Format)
	// Down 之后左上角是原图右下角 (2,1)
	assert.Equal(t, []byte{12, 112, 200, 62}, got.Pix[0:4])
}

func TestNormalize_IdentityIsUnchanged(t *testing.T) {
	src := gridBitmap(FormatRGB, Up)
	before := append([]byte(nil), src.Pix...)

	got := Normalize(src)
	assert.Same(t, src, got)
	assert.Equal(t, before, got.Pix)
	assert.Equal(t, 3, got.Width)
	assert.Equal(t, 2, got.Height)

	unknown := gridBitmap(FormatRGB, Orientation(0))
	assert.Same(t, unknown, Normalize(unknown))
}

func TestNormalize_BrokenBufferFallsBack(t *testing.T) {
	src := gridBitmap(FormatRGB, Right)
	src.Pix = src.Pix[:4]

	got := Normalize(src)
	assert.Same(t, src, got)
	assert.Equal(t, Right, got.Orientation)
}

func TestOrientation_String(t *testing.T) {
	assert.Equal(t, "rightMirrored", RightMirrored.String())
	assert.Equal(t, "Orientation(9)", Orientation(9).String())
	assert.True(t, Orientation(9).IsIdentity())
}
