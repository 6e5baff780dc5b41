package metrics

import (
	"sort"

	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// TopNByComplexity returns the n most complex records, highest index first,
// ties broken by name. Records without an index rank last. n <= 0 returns
// every record.
func TopNByComplexity(records []jurisdiction.ComplexityRecord, n int) []jurisdiction.ComplexityRecord {
	out := make([]jurisdiction.ComplexityRecord, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Index, out[j].Index
		switch {
		case a == nil && b == nil:
			return out[i].Name < out[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return out[i].Name < out[j].Name
		}
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// LargestByArea returns the n jurisdictions with the largest land area,
// ties broken by name. n <= 0 returns every jurisdiction.
func LargestByArea(js []jurisdiction.Jurisdiction, n int) []jurisdiction.Jurisdiction {
	out := make([]jurisdiction.Jurisdiction, len(js))
	copy(out, js)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LandArea != out[j].LandArea {
			return out[i].LandArea > out[j].LandArea
		}
		return out[i].Name < out[j].Name
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// SortPairsByLength orders pairs by shared border length, longest first,
// ties broken by canonical names.
func SortPairsByLength(pairs []jurisdiction.BorderPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].LengthKM != pairs[j].LengthKM {
			return pairs[i].LengthKM > pairs[j].LengthKM
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}
