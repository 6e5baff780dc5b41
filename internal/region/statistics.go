package region

import "github.com/sells-group/jurisdiction-cli/internal/jurisdiction"

// Statistics is the whole-dataset summary written as state_statistics.csv.
type Statistics struct {
	TotalJurisdictions int
	TotalAreaKM2       float64
	AvgAreaKM2         float64
	Largest            string
	LargestAreaKM2     float64
	Smallest           string
	SmallestAreaKM2    float64
}

// Overall summarizes every jurisdiction. Equal areas resolve to the
// alphabetically first name. An empty input yields the zero value.
func Overall(js []jurisdiction.Jurisdiction) Statistics {
	var st Statistics
	if len(js) == 0 {
		return st
	}

	var largest, smallest *jurisdiction.Jurisdiction
	for i := range js {
		j := &js[i]
		st.TotalJurisdictions++
		st.TotalAreaKM2 += j.LandAreaKM2()
		if largest == nil || j.LandArea > largest.LandArea ||
			(j.LandArea == largest.LandArea && j.Name < largest.Name) {
			largest = j
		}
		if smallest == nil || j.LandArea < smallest.LandArea ||
			(j.LandArea == smallest.LandArea && j.Name < smallest.Name) {
			smallest = j
		}
	}

	st.AvgAreaKM2 = st.TotalAreaKM2 / float64(st.TotalJurisdictions)
	st.Largest, st.LargestAreaKM2 = largest.Name, largest.LandAreaKM2()
	st.Smallest, st.SmallestAreaKM2 = smallest.Name, smallest.LandAreaKM2()
	return st
}
