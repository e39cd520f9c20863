package docview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeWindowExample(t *testing.T) {
	g := Geometry{
		ContainerTop:    -1600,
		ContainerHeight: 10000 * 16,
		ViewportHeight:  800,
		RowHeight:       16,
		Overhead:        50,
		Count:           10000,
	}
	assert.Equal(t, Window{Start: 50, End: 200}, ComputeWindow(g))
	assert.Equal(t, 50, Overhead(800, 16))
}

func TestComputeWindowClamps(t *testing.T) {
	// near the top the window starts at zero
	w := ComputeWindow(Geometry{ContainerTop: -32, ContainerHeight: 1600, ViewportHeight: 800, RowHeight: 16, Overhead: 50, Count: 100})
	assert.Equal(t, Window{Start: 0, End: 100}, w)

	// the list starts below the top of the viewport
	w = ComputeWindow(Geometry{ContainerTop: 200, ContainerHeight: 16000, ViewportHeight: 800, RowHeight: 16, Overhead: 10, Count: 1000})
	assert.Equal(t, Window{Start: 0, End: 48}, w)

	// scrolled to the very end
	w = ComputeWindow(Geometry{ContainerTop: -(1000*16 - 800), ContainerHeight: 16000, ViewportHeight: 800, RowHeight: 16, Overhead: 50, Count: 1000})
	assert.Equal(t, Window{Start: 900, End: 1000}, w)

	assert.Equal(t, Window{}, ComputeWindow(Geometry{RowHeight: 16}))
}

func TestComputeWindowCoversVisibleRows(t *testing.T) {
	const count, rh, vh, over = 5000, 1, 37, 37
	for top := 0; top < count; top += 97 {
		g := Geometry{ContainerTop: -top, ContainerHeight: count * rh, ViewportHeight: vh, RowHeight: rh, Overhead: over, Count: count}
		w := ComputeWindow(g)
		assert.GreaterOrEqual(t, w.Start, 0)
		assert.LessOrEqual(t, w.End, count)
		for row := top; row < min(top+vh, count); row++ {
			assert.True(t, w.Contains(row), "row %d visible at top %d", row, top)
		}
	}
}

func TestInitialWindow(t *testing.T) {
	assert.Equal(t, Window{Start: 0, End: 100}, InitialWindow(800, 16, 50, 10000))
	assert.Equal(t, Window{Start: 0, End: 30}, InitialWindow(800, 16, 50, 30))
}

func TestJumpWindow(t *testing.T) {
	cur := Window{Start: 0, End: 100}
	assert.Equal(t, cur, JumpWindow(cur, 40, 50, 10000))
	assert.Equal(t, Window{Start: 850, End: 950}, JumpWindow(cur, 900, 50, 10000))
	assert.Equal(t, Window{Start: 9950, End: 10000}, JumpWindow(cur, 10000, 50, 10000))
	assert.Equal(t, Window{Start: 9940, End: 10000}, JumpWindow(cur, 9990, 50, 10000))
}
