// Package screen provides spatial analysis over OCR block lists: proximity
// clustering, row bucketing, and container detection. All operations are pure
// functions of the input blocks; regions are derived per query and never
// persisted. Quadratic passes are fine at OCR cardinalities (tens of blocks).
package screen

import (
	"sort"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// ContainerOptions tunes FindContainers. Zero values fall back to the
// defaults below.
type ContainerOptions struct {
	// ProximityThreshold is the tight gap used for the initial grouping pass.
	ProximityThreshold float64
	// AreaMultiplier keeps regions whose area is at least this multiple of
	// the mean region area.
	AreaMultiplier float64
	// MinBlocks keeps regions with at least this many member blocks.
	MinBlocks int
}

const (
	defaultContainerProximity = 24.0
	defaultAreaMultiplier     = 1.5
	defaultMinBlocks          = 3
)

// GroupByProximity clusters blocks that are transitively connected by an
// axis gap no larger than threshold into regions. The gap on an axis is zero
// when the boxes overlap on that axis; both the horizontal and the vertical
// gap must be within threshold for two blocks to connect. Single-link
// clustering, so the result is independent of input order up to region and
// member ordering.
func GroupByProximity(blocks []schemas.OcrBlock, threshold float64) []schemas.OcrRegion {
	n := len(blocks)
	if n == 0 {
		return nil
	}

	// Union-find over block indices.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if axisGap(blocks[i].Box.Left, blocks[i].Box.Right, blocks[j].Box.Left, blocks[j].Box.Right) <= threshold &&
				axisGap(blocks[i].Box.Top, blocks[i].Box.Bottom, blocks[j].Box.Top, blocks[j].Box.Bottom) <= threshold {
				union(i, j)
			}
		}
	}

	members := make(map[int][]schemas.OcrBlock)
	order := make([]int, 0, n)
	for i, b := range blocks {
		root := find(i)
		if _, seen := members[root]; !seen {
			order = append(order, root)
		}
		members[root] = append(members[root], b)
	}

	regions := make([]schemas.OcrRegion, 0, len(order))
	for _, root := range order {
		regions = append(regions, newRegion(members[root]))
	}
	return regions
}

// GroupByRows buckets blocks into visual rows: blocks whose top edge lies
// within tolerance of the row's top edge share a row. Rows are ordered top to
// bottom and each row's members left to right.
func GroupByRows(blocks []schemas.OcrBlock, tolerance float64) []schemas.OcrRegion {
	if len(blocks) == 0 {
		return nil
	}

	sorted := make([]schemas.OcrBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Top < sorted[j].Box.Top
	})

	var rows [][]schemas.OcrBlock
	rowTop := sorted[0].Box.Top
	current := []schemas.OcrBlock{sorted[0]}
	for _, b := range sorted[1:] {
		if b.Box.Top-rowTop <= tolerance {
			current = append(current, b)
			continue
		}
		rows = append(rows, current)
		current = []schemas.OcrBlock{b}
		rowTop = b.Box.Top
	}
	rows = append(rows, current)

	regions := make([]schemas.OcrRegion, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Box.Left < row[j].Box.Left
		})
		regions = append(regions, newRegion(row))
	}
	return regions
}

// FindContainers detects dialog and panel shaped regions: it proximity-groups
// at a tight threshold, then keeps regions that are both larger than the mean
// region area by the configured multiplier and populated by at least
// MinBlocks members.
func FindContainers(blocks []schemas.OcrBlock, opts ContainerOptions) []schemas.OcrRegion {
	if opts.ProximityThreshold <= 0 {
		opts.ProximityThreshold = defaultContainerProximity
	}
	if opts.AreaMultiplier <= 0 {
		opts.AreaMultiplier = defaultAreaMultiplier
	}
	if opts.MinBlocks <= 0 {
		opts.MinBlocks = defaultMinBlocks
	}

	regions := GroupByProximity(blocks, opts.ProximityThreshold)
	if len(regions) == 0 {
		return nil
	}

	var total float64
	for _, r := range regions {
		total += r.Bounds.Area()
	}
	mean := total / float64(len(regions))

	var containers []schemas.OcrRegion
	for _, r := range regions {
		if r.Bounds.Area() >= opts.AreaMultiplier*mean && len(r.Blocks) >= opts.MinBlocks {
			containers = append(containers, r)
		}
	}
	return containers
}

// RegionContaining returns the first region whose member text contains the
// given substring case-insensitively, or nil when none does. Used to scope
// grounding to a dialog when the same label appears in several places.
func RegionContaining(regions []schemas.OcrRegion, text string) *schemas.OcrRegion {
	for i := range regions {
		if regions[i].ContainsTextIn(text) {
			return &regions[i]
		}
	}
	return nil
}

// axisGap returns the distance between two intervals on one axis, zero when
// they overlap.
func axisGap(aLo, aHi, bLo, bHi float64) float64 {
	if aHi < bLo {
		return bLo - aHi
	}
	if bHi < aLo {
		return aLo - bHi
	}
	return 0
}

func newRegion(blocks []schemas.OcrBlock) schemas.OcrRegion {
	bounds := blocks[0].Box
	for _, b := range blocks[1:] {
		bounds = bounds.Union(b.Box)
	}
	return schemas.OcrRegion{Bounds: bounds, Blocks: blocks}
}
