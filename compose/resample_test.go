package compose

import (
	"testing"

	"github.com/chaos-io/cutout/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskOf(w, h int, values ...uint8) *bitmap.Mask {
	m := bitmap.NewMask(w, h)
	copy(m.Pix, values)
	return m
}

func TestResample(t *testing.T) {
	tests := []struct {
		name string
		src  *bitmap.Mask
		w, h int
		want []uint8
	}{
		{
			// 源 (x,y) = 10*(4y+x)，2x2 读 (1,1) (3,1) (1,3) (3,3)
			name: "4x4 to 2x2",
			src: maskOf(4, 4,
				0, 10, 20, 30,
				40, 50, 60, 70,
				80, 90, 100, 110,
				120, 130, 140, 150),
			w: 2, h: 2,
			want: []uint8{50, 70, 130, 150},
		},
		{
			name: "2x2 to 4x4",
			src:  maskOf(2, 2, 1, 2, 3, 4),
			w:    4, h: 4,
			want: []uint8{
				1, 1, 2, 2,
				1, 1, 2, 2,
				3, 3, 4, 4,
				3, 3, 4, 4,
			},
		},
		{
			name: "independent axes 3x1 to 2x3",
			src:  maskOf(3, 1, 7, 8, 9),
			w:    2, h: 3,
			want: []uint8{7, 9, 7, 9, 7, 9},
		},
		{
			name: "same size copies",
			src:  maskOf(2, 1, 0, 255),
			w:    2, h: 1,
			want: []uint8{0, 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resample(tt.src, tt.w, tt.h)
			require.NoError(t, err)
			assert.Equal(t, tt.w, got.Width)
			assert.Equal(t, tt.h, got.Height)
			assert.Equal(t, tt.want, got.Pix[:tt.w*tt.h])
			assert.NotSame(t, tt.src, got)
		})
	}
}

func TestResample_Dimensions(t *testing.T) {
	src := bitmap.NewMask(320, 320)
	for _, size := range [][2]int{{100, 100}, {1, 1}, {641, 479}, {320, 1000}} {
		got, err := Resample(src, size[0], size[1])
		require.NoError(t, err)
		assert.Equal(t, size[0], got.Width)
		assert.Equal(t, size[1], got.Height)
		assert.NoError(t, got.Validate())
	}
}

func TestResample_InvalidInput(t *testing.T) {
	_, err := Resample(bitmap.NewMask(2, 2), 0, 3)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = Resample(&bitmap.Mask{}, 3, 3)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	assert.ErrorIs(t, err, bitmap.ErrBufferUnavailable)
}
