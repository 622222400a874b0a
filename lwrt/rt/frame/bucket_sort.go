package frame

import (
	"cmp"
	"math"
	"slices"
)

type SortMode uint8

const (
	SortNone SortMode = iota
	SortState
	SortFrontToBack
	SortBackToFront
)

func (m SortMode) String() string {
	switch m {
	case SortNone:
		return "none"
	case SortState:
		return "state"
	case SortFrontToBack:
		return "front_to_back"
	case SortBackToFront:
		return "back_to_front"
	}
	return "unknown"
}

// Distance sentinels of items forced to the ends of a bucket.
const (
	DistanceFirst float32 = -1
	DistanceLast  float32 = math.MaxFloat32
)

// BucketItem is the sort key of one model inside a bucket.
type BucketItem struct {
	Model        int
	BlockHash    uint32
	MaterialHash uint32
	Distance     float32
}

func orderRank(d float32) int {
	switch d {
	case DistanceFirst:
		return 0
	case DistanceLast:
		return 2
	}
	return 1
}

// sortItems orders items in place. Forced first and last items keep their
// place at the ends under every mode except SortNone.
func sortItems(items []BucketItem, mode SortMode) {
	var less func(a, b BucketItem) int
	switch mode {
	case SortState:
		less = func(a, b BucketItem) int {
			return cmp.Or(
				cmp.Compare(orderRank(a.Distance), orderRank(b.Distance)),
				cmp.Compare(a.MaterialHash, b.MaterialHash),
				cmp.Compare(a.BlockHash, b.BlockHash),
			)
		}
	case SortFrontToBack:
		less = func(a, b BucketItem) int {
			return cmp.Or(
				cmp.Compare(orderRank(a.Distance), orderRank(b.Distance)),
				cmp.Compare(a.Distance, b.Distance),
			)
		}
	case SortBackToFront:
		less = func(a, b BucketItem) int {
			return cmp.Or(
				cmp.Compare(orderRank(a.Distance), orderRank(b.Distance)),
				cmp.Compare(b.Distance, a.Distance),
			)
		}
	default:
		return
	}
	slices.SortStableFunc(items, less)
}
