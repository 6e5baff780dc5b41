// Package region groups jurisdictions by their region label.
package region

import (
	"sort"

	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Aggregate sums land area per region. Grouping is case-sensitive and
// only regions with at least one member appear.
func Aggregate(js []jurisdiction.Jurisdiction) map[string]jurisdiction.RegionSummary {
	out := make(map[string]jurisdiction.RegionSummary)
	for _, j := range js {
		s := out[j.Region]
		s.Region = j.Region
		s.Count++
		s.TotalAreaKM2 += j.LandAreaKM2()
		out[j.Region] = s
	}
	for k, s := range out {
		s.AvgAreaKM2 = s.TotalAreaKM2 / float64(s.Count)
		out[k] = s
	}
	return out
}

// Ordered returns the summaries largest total area first, ties by region name.
func Ordered(m map[string]jurisdiction.RegionSummary) []jurisdiction.RegionSummary {
	out := make([]jurisdiction.RegionSummary, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAreaKM2 != out[j].TotalAreaKM2 {
			return out[i].TotalAreaKM2 > out[j].TotalAreaKM2
		}
		return out[i].Region < out[j].Region
	})
	return out
}
