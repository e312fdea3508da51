// Package bilateral merges left/right-paired anatomical structures into
// unified measurements: area-weighted per-slice mean intensity with a
// pooled standard deviation, and pixelcount-weighted structure-level
// summaries. Structures without a mirror-side counterpart pass through
// unchanged.
package bilateral

import "strings"

// Pairing describes how one output structure is assembled from the
// input set: either a single unpaired structure kept under its original
// name, or a resolved left/right pair under the shared base name. The
// suffix convention is resolved once here, not re-parsed at each merge.
type Pairing struct {
	// Name is the output structure name: the base name for a pair,
	// the original name for an unpaired structure
	Name string

	// Left and Right are the input structure names. For an unpaired
	// structure only Left is set and holds the original name.
	Left  string
	Right string

	// Paired reports whether both sides are present
	Paired bool
}

// ResolvePairs maps an ordered list of structure names to the pairings
// the mergers operate on. A name ending in leftSuffix pairs with the
// identical base name plus rightSuffix if and only if that counterpart
// exists in the input; unpaired left or right structures and structures
// without a side suffix pass through under their original name. The
// output preserves the insertion order of first encounter.
func ResolvePairs(names []string, leftSuffix, rightSuffix string) []Pairing {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	var pairings []Pairing
	processed := make(map[string]bool, len(names))

	for _, name := range names {
		if processed[name] {
			continue
		}

		switch {
		case strings.HasSuffix(name, leftSuffix):
			base := strings.TrimSuffix(name, leftSuffix)
			right := base + rightSuffix
			if present[right] {
				pairings = append(pairings, Pairing{Name: base, Left: name, Right: right, Paired: true})
				processed[name] = true
				processed[right] = true
			} else {
				pairings = append(pairings, Pairing{Name: name, Left: name})
				processed[name] = true
			}

		case strings.HasSuffix(name, rightSuffix):
			base := strings.TrimSuffix(name, rightSuffix)
			left := base + leftSuffix
			if present[left] {
				// handled when the left side is encountered
				continue
			}
			pairings = append(pairings, Pairing{Name: name, Left: name})
			processed[name] = true

		default:
			pairings = append(pairings, Pairing{Name: name, Left: name})
			processed[name] = true
		}
	}

	return pairings
}
