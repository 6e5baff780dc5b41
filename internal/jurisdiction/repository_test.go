package jurisdiction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
)

type sliceSource struct {
	items []Jurisdiction
	err   error
}

func (s sliceSource) Describe() string { return "slice" }

func (s sliceSource) Load(context.Context) ([]Jurisdiction, error) {
	return s.items, s.err
}

func state(name, region string, land int64) Jurisdiction {
	return Jurisdiction{Name: name, Region: region, LandArea: land, Geometry: geometry.Handle("g:" + name)}
}

func TestLoad_PreservesOrder(t *testing.T) {
	src := sliceSource{items: []Jurisdiction{
		state("Texas", "3", 1), state("Alabama", "3", 2), state("Ohio", "2", 3),
	}}

	repo, err := Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.Len())
	assert.Equal(t, []string{"Texas", "Alabama", "Ohio"}, repo.Names())
}

func TestLoad_SourceErrorBecomesLoadError(t *testing.T) {
	src := sliceSource{err: fmt.Errorf("permission denied")}

	_, err := Load(context.Background(), src)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "slice", le.Source)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestLoad_PassesThroughLoadError(t *testing.T) {
	orig := &LoadError{Source: "x.shp", Reason: "missing column ALAND"}
	_, err := Load(context.Background(), sliceSource{err: orig})
	assert.Same(t, orig, err)
}

func TestNewRepository_RejectsDuplicateNames(t *testing.T) {
	_, err := NewRepository([]Jurisdiction{state("Ohio", "2", 1), state("Ohio", "2", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate name "Ohio"`)
}

func TestNewRepository_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		item Jurisdiction
		want string
	}{
		{"empty name", Jurisdiction{Geometry: "g"}, "has no name"},
		{"no geometry", Jurisdiction{Name: "Ohio"}, "has no geometry"},
		{"negative land", Jurisdiction{Name: "Ohio", Geometry: "g", LandArea: -1}, "negative area"},
		{"negative water", Jurisdiction{Name: "Ohio", Geometry: "g", WaterArea: -5}, "negative area"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository([]Jurisdiction{tt.item})
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Contains(t, le.Error(), tt.want)
		})
	}
}

func TestFindByName(t *testing.T) {
	repo, err := NewRepository([]Jurisdiction{state("California", "4", 403_673_617_862)})
	require.NoError(t, err)

	j, ok := repo.FindByName("California")
	require.True(t, ok)
	assert.InDelta(t, 403673.617862, j.LandAreaKM2(), 1e-6)

	_, ok = repo.FindByName("california")
	assert.False(t, ok, "lookup is case-sensitive")
}

func TestApplyTaxRates_SnapshotsAreIndependent(t *testing.T) {
	repo, err := NewRepository([]Jurisdiction{state("Texas", "3", 1), state("Ohio", "2", 1)})
	require.NoError(t, err)

	before := repo.All()
	repo.ApplyTaxRates(map[string]TaxRates{
		"Texas":   {Sales: 6.25, Use: 6.25},
		"Nowhere": {Sales: 1, Use: 1},
	})

	assert.Nil(t, before[0].SalesTaxRate, "earlier snapshot must not change")

	tx, _ := repo.FindByName("Texas")
	require.NotNil(t, tx.SalesTaxRate)
	assert.Equal(t, 6.25, *tx.SalesTaxRate)
	assert.Equal(t, 6.25, *tx.UseTaxRate)

	oh, _ := repo.FindByName("Ohio")
	assert.Nil(t, oh.SalesTaxRate)
}

func TestNewBorderPair_Canonical(t *testing.T) {
	p, ok := NewBorderPair("Texas", "Oklahoma")
	require.True(t, ok)
	assert.Equal(t, "Oklahoma", p.A)
	assert.Equal(t, "Texas", p.B)

	q, _ := NewBorderPair("Oklahoma", "Texas")
	assert.Equal(t, p.Key(), q.Key())

	_, ok = NewBorderPair("Texas", "Texas")
	assert.False(t, ok)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "Low", TierLow.String())
	assert.Equal(t, "Medium", TierMedium.String())
	assert.Equal(t, "High", TierHigh.String())
	assert.Equal(t, "", TierUnset.String())
}
