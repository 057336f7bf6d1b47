package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestComputeSize(t *testing.T) {
	tests := []struct {
		name         string
		req          SizeRequest
		wantW, wantH int
	}{
		{"width with aspect", SizeRequest{Width: intPtr(400), MaintainAspectRatio: true}, 400, 300},
		{"height with aspect", SizeRequest{Height: intPtr(150), MaintainAspectRatio: true}, 200, 150},
		{"scale percent", SizeRequest{ScalePercent: floatPtr(50)}, 400, 300},
		{"scale ignores aspect flag", SizeRequest{ScalePercent: floatPtr(50), MaintainAspectRatio: true}, 400, 300},
		{"scale wins over width", SizeRequest{ScalePercent: floatPtr(25), Width: intPtr(10)}, 200, 150},
		{"width without aspect", SizeRequest{Width: intPtr(100)}, 100, 600},
		{"height without aspect", SizeRequest{Height: intPtr(100)}, 800, 100},
		{"both without aspect", SizeRequest{Width: intPtr(10), Height: intPtr(20)}, 10, 20},
		{"fit within width bound", SizeRequest{Width: intPtr(400), Height: intPtr(400), MaintainAspectRatio: true}, 400, 300},
		{"fit within height bound", SizeRequest{Width: intPtr(800), Height: intPtr(60), MaintainAspectRatio: true}, 80, 60},
		{"tiny scale clamps to one", SizeRequest{ScalePercent: floatPtr(0.01)}, 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, h, err := ComputeSize(800, 600, tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestComputeSizeRoundsHalfAwayFromZero(t *testing.T) {
	// 3 * 0.5 = 1.5 rounds to 2, truncation would give 1
	w, h, err := ComputeSize(3, 5, SizeRequest{ScalePercent: floatPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 3, h)
}

func TestComputeSizeFitsWithinBounds(t *testing.T) {
	sources := [][2]int{{800, 600}, {600, 800}, {1920, 1080}, {7, 3}, {1, 1000}}
	for _, src := range sources {
		for bw := 1; bw <= 300; bw += 37 {
			for bh := 1; bh <= 300; bh += 41 {
				w, h, err := ComputeSize(src[0], src[1], SizeRequest{
					Width: intPtr(bw), Height: intPtr(bh), MaintainAspectRatio: true,
				})
				require.NoError(t, err)
				assert.LessOrEqual(t, w, bw, "src %v bound %dx%d", src, bw, bh)
				assert.LessOrEqual(t, h, bh, "src %v bound %dx%d", src, bw, bh)
				assert.GreaterOrEqual(t, w, 1)
				assert.GreaterOrEqual(t, h, 1)
			}
		}
	}
}

func TestComputeSizeErrors(t *testing.T) {
	_, _, err := ComputeSize(800, 600, SizeRequest{MaintainAspectRatio: true})
	assert.ErrorIs(t, err, ErrMissingDimension)

	_, _, err = ComputeSize(800, 600, SizeRequest{Width: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, _, err = ComputeSize(800, 600, SizeRequest{ScalePercent: floatPtr(-5)})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, _, err = ComputeSize(0, 600, SizeRequest{Width: intPtr(10)})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestComputeSizeRejectsOversizedTargets(t *testing.T) {
	tests := []struct {
		name string
		req  SizeRequest
	}{
		{"huge width", SizeRequest{Width: intPtr(math.MaxInt)}},
		{"huge height with aspect", SizeRequest{Height: intPtr(math.MaxInt), MaintainAspectRatio: true}},
		{"width one past limit", SizeRequest{Width: intPtr(MaxDimension + 1)}},
		{"huge scale", SizeRequest{ScalePercent: floatPtr(1e12)}},
		{"derived axis past limit", SizeRequest{Width: intPtr(MaxDimension), MaintainAspectRatio: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ComputeSize(8, 600, tc.req)
			assert.ErrorIs(t, err, ErrInvalidDimension)
		})
	}

	w, h, err := ComputeSize(8, 6, SizeRequest{Width: intPtr(MaxDimension), Height: intPtr(MaxDimension), MaintainAspectRatio: true})
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, w)
	assert.LessOrEqual(t, h, MaxDimension)
}
