package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpsebot/glimpse/api/schemas"
)

func block(text string, left, top, right, bottom float64) schemas.OcrBlock {
	return schemas.OcrBlock{
		Text: text,
		Box:  schemas.BoundingBox{Left: left, Top: top, Right: right, Bottom: bottom},
	}
}

func TestGroupByProximityMergesNeighbors(t *testing.T) {
	blocks := []schemas.OcrBlock{
		block("File", 10, 10, 40, 25),
		block("Edit", 45, 10, 75, 25), // 5px gap to "File"
		block("Footer", 10, 500, 80, 520),
	}

	regions := GroupByProximity(blocks, 10)
	require.Len(t, regions, 2)
	assert.Len(t, regions[0].Blocks, 2)
	assert.Len(t, regions[1].Blocks, 1)
	assert.Equal(t, 10.0, regions[0].Bounds.Left)
	assert.Equal(t, 75.0, regions[0].Bounds.Right)
}

func TestGroupByProximityTransitiveChain(t *testing.T) {
	// A-B gap 5, B-C gap 5, A-C gap 40: still one region via the chain.
	blocks := []schemas.OcrBlock{
		block("A", 0, 0, 30, 10),
		block("B", 35, 0, 65, 10),
		block("C", 70, 0, 100, 10),
	}
	regions := GroupByProximity(blocks, 10)
	require.Len(t, regions, 1)
	assert.Len(t, regions[0].Blocks, 3)
}

func TestGroupByProximityOrderIndependent(t *testing.T) {
	blocks := []schemas.OcrBlock{
		block("A", 0, 0, 30, 10),
		block("B", 35, 0, 65, 10),
		block("C", 200, 200, 230, 210),
	}
	reversed := []schemas.OcrBlock{blocks[2], blocks[1], blocks[0]}

	a := GroupByProximity(blocks, 10)
	b := GroupByProximity(reversed, 10)
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	sizes := func(rs []schemas.OcrRegion) map[int]int {
		m := make(map[int]int)
		for _, r := range rs {
			m[len(r.Blocks)]++
		}
		return m
	}
	assert.Equal(t, sizes(a), sizes(b))
}

func TestGroupByProximityOverlapIsZeroGap(t *testing.T) {
	blocks := []schemas.OcrBlock{
		block("A", 0, 0, 50, 20),
		block("B", 40, 100, 90, 120), // x overlaps, y gap 80
	}
	assert.Len(t, GroupByProximity(blocks, 10), 2)
	assert.Len(t, GroupByProximity(blocks, 90), 1)
}

func TestGroupByRows(t *testing.T) {
	blocks := []schemas.OcrBlock{
		block("right", 200, 12, 250, 28),
		block("left", 10, 10, 60, 26),
		block("below", 10, 60, 60, 76),
	}

	rows := GroupByRows(blocks, 5)
	require.Len(t, rows, 2)
	// First row is sorted left to right despite input order.
	assert.Equal(t, "left", rows[0].Blocks[0].Text)
	assert.Equal(t, "right", rows[0].Blocks[1].Text)
	assert.Equal(t, "below", rows[1].Blocks[0].Text)
}

func TestGroupByRowsEmpty(t *testing.T) {
	assert.Nil(t, GroupByRows(nil, 5))
	assert.Nil(t, GroupByProximity(nil, 5))
}

func TestFindContainers(t *testing.T) {
	// A dense dialog cluster plus scattered single labels.
	blocks := []schemas.OcrBlock{
		block("Confirm delete?", 300, 200, 500, 230),
		block("This cannot be undone", 300, 240, 520, 265),
		block("Cancel", 320, 280, 390, 305),
		block("Delete", 430, 280, 500, 305),
		block("clock", 900, 10, 950, 25),
		block("wifi", 960, 10, 990, 25),
	}

	containers := FindContainers(blocks, ContainerOptions{ProximityThreshold: 30, AreaMultiplier: 1.2, MinBlocks: 3})
	require.Len(t, containers, 1)
	assert.GreaterOrEqual(t, len(containers[0].Blocks), 4)
	assert.True(t, containers[0].ContainsTextIn("cancel"))
}

func TestRegionContaining(t *testing.T) {
	regions := GroupByProximity([]schemas.OcrBlock{
		block("Save", 0, 0, 40, 15),
		block("Save", 600, 600, 640, 615),
	}, 10)
	require.Len(t, regions, 2)

	hit := RegionContaining(regions, "save")
	require.NotNil(t, hit)
	assert.Equal(t, 0.0, hit.Bounds.Left)
	assert.Nil(t, RegionContaining(regions, "missing"))
}
