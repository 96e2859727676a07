package tensor

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec(0)
	assert.Error(t, err)

	c, err := NewCodec(64)
	require.NoError(t, err)
	assert.Equal(t, 64, c.Size)
}

func TestEncode_ShapeAndPlanarLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 37, 21))
	fill(img, color.RGBA{R: 255, G: 51, B: 0, A: 255})

	codec, err := NewCodec(8)
	require.NoError(t, err)

	tns, err := codec.Encode(img)
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 8, 8}, tns.Shape)
	require.Len(t, tns.Data, 3*8*8)

	plane := 64
	for i := 0; i < plane; i++ {
		assert.InDelta(t, 1.0, tns.Data[i], 1e-6)
		assert.InDelta(t, 0.2, tns.Data[plane+i], 1e-6)
		assert.InDelta(t, 0.0, tns.Data[2*plane+i], 1e-6)
	}
}

func TestEncode_GrayReplicated(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range img.Pix {
		img.Pix[i] = 102
	}

	codec, _ := NewCodec(4)
	tns, err := codec.Encode(img)
	require.NoError(t, err)

	for _, v := range tns.Data {
		assert.InDelta(t, 0.4, v, 1e-6)
	}
}

func TestEncode_SubImageOffset(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	fill(img, color.RGBA{A: 255})
	fill(img.SubImage(image.Rect(10, 10, 20, 20)).(*image.RGBA), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	codec, _ := NewCodec(4)
	tns, err := codec.Encode(img.SubImage(image.Rect(10, 10, 20, 20)))
	require.NoError(t, err)
	for _, v := range tns.Data {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 13, 9))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}

	codec, _ := NewCodec(6)
	a, err := codec.Encode(img)
	require.NoError(t, err)
	b, err := codec.Encode(img)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestEncode_ZeroArea(t *testing.T) {
	codec, _ := NewCodec(4)
	_, err := codec.Encode(image.NewRGBA(image.Rect(3, 3, 3, 9)))
	assert.ErrorIs(t, err, ErrInvalidRegion)
}

func TestDecode_Softmax(t *testing.T) {
	logits := []float32{1, 2, 3}
	dist, err := Decode(logits)
	require.NoError(t, err)
	require.Len(t, dist, 3)

	denom := math32.Exp(1) + math32.Exp(2) + math32.Exp(3)
	for i, l := range logits {
		assert.InDelta(t, math32.Exp(l)/denom, dist[i], 1e-6)
	}
	assertSumsToOne(t, dist)
}

func TestDecode_LargeLogitsStable(t *testing.T) {
	dist, err := Decode([]float32{1000, 1000, 999})
	require.NoError(t, err)
	for _, p := range dist {
		assert.False(t, math32.IsNaN(p))
		assert.False(t, math32.IsInf(p, 0))
		assert.GreaterOrEqual(t, p, float32(0))
	}
	assert.InDelta(t, dist[0], dist[1], 1e-7)
	assertSumsToOne(t, dist)

	neg, err := Decode([]float32{-1000, -1001, -5000})
	require.NoError(t, err)
	assertSumsToOne(t, neg)
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyLogits)
}

func TestDecode_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name   string
		logits []float32
	}{
		{"positive infinity", []float32{math32.Inf(1), 0, 0}},
		{"negative infinity", []float32{0, math32.Inf(-1), 1}},
		{"nan", []float32{0, math32.NaN(), 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.logits)
			assert.ErrorIs(t, err, ErrNonFiniteLogits)
			assert.Nil(t, d)
		})
	}
}

func TestArgmax(t *testing.T) {
	idx, conf := Argmax(Distribution{0.1, 0.6, 0.3})
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.6, conf, 1e-7)

	idx, _ = Argmax(Distribution{0.4, 0.2, 0.4})
	assert.Equal(t, 0, idx, "ties go to the lowest index")

	idx, conf = Argmax(nil)
	assert.Equal(t, -1, idx)
	assert.Equal(t, float32(0), conf)
}

func assertSumsToOne(t *testing.T, d Distribution) {
	t.Helper()
	var sum float32
	for _, p := range d {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}
