package report

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
)

// textWriter accumulates the first write error so sections can print
// without checking every line.
type textWriter struct {
	p   *message.Printer
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = t.p.Fprintf(t.w, format, args...)
}

// WriteText renders the human-readable analysis report. Figures use English
// digit grouping.
func WriteText(w io.Writer, res *analysis.Result) error {
	t := &textWriter{p: message.NewPrinter(language.English), w: w}

	t.printf("=== State Borders ===\n")
	names := make([]string, 0, len(res.Neighbors))
	for name := range res.Neighbors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.printf("\n%s borders with:\n", name)
		for _, n := range res.Neighbors[name] {
			t.printf("  - %s\n", n)
		}
	}

	t.printf("\n=== Top %d Largest States ===\n", len(res.Largest))
	for _, j := range res.Largest {
		t.printf("%s (%s): %.2f km²\n", j.Name, j.PostalCode, j.LandAreaKM2())
	}

	t.printf("\n=== Regional Analysis ===\n")
	for _, r := range res.RegionOrder {
		t.printf("\nRegion: %s\n", r.Region)
		t.printf("Number of States: %d\n", r.Count)
		t.printf("Total Area: %.2f km²\n", r.TotalAreaKM2)
		t.printf("Average State Area: %.2f km²\n", r.AvgAreaKM2)
	}

	t.printf("\n=== Jurisdiction Complexity Analysis ===\n")
	t.printf("(Higher complexity index indicates more complex boundaries)\n")
	for _, r := range res.TopComplexity {
		t.printf("\nState: %s (%s)\n", r.Name, r.PostalCode)
		t.printf("Perimeter: %.2f km\n", r.PerimeterKM)
		t.printf("Area: %.2f km²\n", r.AreaKM2)
		t.printf("Boundary Points: %d\n", r.BoundaryPoints)
		if r.Index == nil {
			t.printf("Complexity Index: n/a\n")
		} else {
			t.printf("Complexity Index: %.2f\n", *r.Index)
		}
	}

	t.printf("\n=== Tax Jurisdiction Analysis ===\n")
	for _, p := range res.PairsByLength {
		t.printf("Border Zone: %s - %s\n", p.A, p.B)
		t.printf("Length: %.2f km\n", p.LengthKM)
		t.printf("Tax Complexity: %s\n", p.Tier)
		t.printf("---\n")
	}

	t.printf("\n=== Tax Rates ===\n")
	for _, j := range res.Jurisdictions {
		if j.SalesTaxRate == nil {
			continue
		}
		t.printf("State: %s, Sales Tax: %.2f, Use Tax: %.2f\n", j.Name, *j.SalesTaxRate, *j.UseTaxRate)
	}

	t.printf("\nPairs evaluated: %d, bordering: %d, skipped: %d\n", res.Evaluated, len(res.Pairs), res.Skipped)
	if res.SkippedComplexity > 0 {
		t.printf("Jurisdictions without complexity metrics: %d\n", res.SkippedComplexity)
	}

	if t.err != nil {
		return eris.Wrap(t.err, "report: write text")
	}
	return nil
}
