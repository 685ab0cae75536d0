package tiling

import (
	"fmt"
	"testing"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	tests := []struct {
		size    int
		overlap float64
		want    int
	}{
		{640, 0.2, 512},
		{640, 0, 640},
		{640, 0.5, 320},
		{100, 0.33, 67},
		{3, 0.5, 1},
	}
	for _, tt := range tests {
		got, err := Step(tt.size, tt.overlap)
		require.NoError(t, err, "size=%d overlap=%v", tt.size, tt.overlap)
		assert.Equal(t, tt.want, got, "size=%d overlap=%v", tt.size, tt.overlap)
	}
}

func TestPlanConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		w, h, size int
		overlap    float64
	}{
		{"overlap one", 100, 100, 64, 1},
		{"overlap above one", 100, 100, 64, 1.5},
		{"negative overlap", 100, 100, 64, -0.1},
		{"step below one", 100, 100, 4, 0.9},
		{"zero tile", 100, 100, 0, 0.2},
		{"negative tile", 100, 100, -640, 0.2},
		{"zero width", 0, 100, 64, 0.2},
		{"negative height", 100, -1, 64, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.w, tt.h, tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, common.IsConfigError(err), "expected ConfigError, got %v", err)
		})
	}
}

func TestPlanWideImage(t *testing.T) {
	windows, err := Plan(1280, 640, 640, 0.2)
	require.NoError(t, err)

	want := []Window{
		{Index: 0, X: 0, Y: 0, Width: 640, Height: 640},
		{Index: 1, X: 512, Y: 0, Width: 640, Height: 640},
		{Index: 2, X: 1024, Y: 0, Width: 256, Height: 640},
	}
	assert.Equal(t, want, windows, "the right strip past x=1152 needs a third, clamped window")
	assert.True(t, windows[2].Padded(640))
	assert.False(t, windows[0].Padded(640))
}

func TestPlanSmallImage(t *testing.T) {
	windows, err := Plan(300, 200, 640, 0.2)
	require.NoError(t, err)
	assert.Equal(t, []Window{{Index: 0, X: 0, Y: 0, Width: 300, Height: 200}}, windows)
}

func TestPlanRowMajorOrder(t *testing.T) {
	windows, err := Plan(1500, 1100, 640, 0.2)
	require.NoError(t, err)

	xs := []int{0, 512, 1024}
	ys := []int{0, 512}
	require.Len(t, windows, len(xs)*len(ys))
	for i, w := range windows {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, ys[i/len(xs)], w.Y, "window %d", i)
		assert.Equal(t, xs[i%len(xs)], w.X, "window %d", i)
	}
	assert.Equal(t, 476, windows[2].Width)
	assert.Equal(t, 588, windows[5].Height)
}

func coverage(t *testing.T, w, h, size int, overlap float64) {
	windows, err := Plan(w, h, size, overlap)
	require.NoError(t, err)

	covered := make([]bool, w*h)
	for _, win := range windows {
		assert.GreaterOrEqual(t, win.X, 0)
		assert.GreaterOrEqual(t, win.Y, 0)
		assert.Less(t, win.X, w, "offset inside image")
		assert.Less(t, win.Y, h, "offset inside image")
		assert.LessOrEqual(t, win.X+win.Width, w, "window %v exceeds width", win)
		assert.LessOrEqual(t, win.Y+win.Height, h, "window %v exceeds height", win)
		assert.LessOrEqual(t, win.Width, size)
		assert.LessOrEqual(t, win.Height, size)
		for y := win.Y; y < win.Y+win.Height; y++ {
			for x := win.X; x < win.X+win.Width; x++ {
				covered[y*w+x] = true
			}
		}
	}
	for i, c := range covered {
		if !c {
			t.Fatalf("pixel (%d,%d) not covered for %dx%d size=%d overlap=%v", i%w, i/w, w, h, size, overlap)
		}
	}
}

func TestPlanCoverage(t *testing.T) {
	sizes := [][2]int{{1, 1}, {63, 64}, {64, 64}, {65, 64}, {200, 97}, {257, 129}, {500, 31}}
	for _, dims := range sizes {
		for _, size := range []int{16, 64, 100} {
			for _, overlap := range []float64{0, 0.2, 0.25, 0.5, 0.75} {
				t.Run(fmt.Sprintf("%dx%d/%d/%v", dims[0], dims[1], size, overlap), func(t *testing.T) {
					coverage(t, dims[0], dims[1], size, overlap)
				})
			}
		}
	}
}

func TestPlanOverlapBetweenNeighbours(t *testing.T) {
	windows, err := Plan(2000, 640, 640, 0.25)
	require.NoError(t, err)
	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		overlap := prev.X + prev.Width - cur.X
		assert.Equal(t, 160, overlap, "neighbours should share floor(0.25*640) pixels")
	}
}
