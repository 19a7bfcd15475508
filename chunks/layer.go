package chunks

import (
	"slices"
	"strconv"
	"strings"
)

// Layer names a draw-order slot. Any string is valid; layers that parse as
// integers order numerically.
type Layer string

// CompareLayers orders two layers, numerically when both are integers.
func CompareLayers(a, b Layer) int {
	ai, errA := strconv.Atoi(string(a))
	bi, errB := strconv.Atoi(string(b))
	switch {
	case errA == nil && errB == nil:
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

func SortLayers(layers []Layer) {
	slices.SortFunc(layers, CompareLayers)
}
