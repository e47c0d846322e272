package raster

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Run("nibble scaling", func(t *testing.T) {
		out, err := Expand([]byte{0x0F, 0x80}, 2, 2)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 255, 136, 0}, out)
	})

	t.Run("high nibble first", func(t *testing.T) {
		out, err := Expand([]byte{0x12, 0x34}, 4, 1)
		require.NoError(t, err)
		require.Equal(t, []byte{1 * 17, 2 * 17, 3 * 17, 4 * 17}, out)
	})

	t.Run("full frame of white", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0xFF}, Width*Height/2)
		out, err := Expand(raw, Width, Height)
		require.NoError(t, err)
		require.Len(t, out, Width*Height)
		for i, p := range out {
			if p != 255 {
				t.Fatalf("pixel %d = %d, want 255", i, p)
			}
		}
	})

	t.Run("trailing padding ignored", func(t *testing.T) {
		out, err := Expand([]byte{0xFF, 0xFF, 0xAA, 0xAA}, 3, 1)
		require.NoError(t, err)
		require.Equal(t, []byte{255, 255, 255}, out)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, err := Expand(make([]byte, Width*Height/2-1), Width, Height)
		require.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestEncodePNG(t *testing.T) {
	pixels, err := Expand(bytes.Repeat([]byte{0x8F}, 8), 4, 4)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, pixels, 4, 4))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())
}

func TestWritePGM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePGM(&buf, []byte{0, 128, 255, 64}, 2, 2))
	require.Equal(t, append([]byte("P5\n2 2\n255\n"), 0, 128, 255, 64), buf.Bytes())
}
