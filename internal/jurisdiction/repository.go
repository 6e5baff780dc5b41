package jurisdiction

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Source produces the raw jurisdiction records for a run.
type Source interface {
	// Describe names the source in errors and logs (a path or table name).
	Describe() string

	// Load reads every jurisdiction in source order.
	Load(ctx context.Context) ([]Jurisdiction, error)
}

// Repository is the in-memory, load-once collection of jurisdictions.
// Records are immutable except for tax rates, which change only through
// ApplyTaxRates under the write lock.
type Repository struct {
	mu    sync.RWMutex
	items []Jurisdiction
	index map[string]int
}

// Load reads all records from src and builds a Repository. Any source
// failure or invalid record is reported as a *LoadError.
func Load(ctx context.Context, src Source) (*Repository, error) {
	items, err := src.Load(ctx)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{Source: src.Describe(), Reason: "read source", Err: err}
	}
	return newRepository(src.Describe(), items)
}

// NewRepository builds a Repository from records already in memory.
func NewRepository(items []Jurisdiction) (*Repository, error) {
	return newRepository("memory", items)
}

func newRepository(source string, items []Jurisdiction) (*Repository, error) {
	r := &Repository{
		items: make([]Jurisdiction, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, j := range items {
		if j.Name == "" {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("record %d has no name", i)}
		}
		if _, dup := r.index[j.Name]; dup {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("duplicate name %q", j.Name)}
		}
		if j.Geometry == "" {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("%q has no geometry", j.Name)}
		}
		if j.LandArea < 0 || j.WaterArea < 0 {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("%q has a negative area", j.Name)}
		}
		r.index[j.Name] = len(r.items)
		r.items = append(r.items, j)
	}
	return r, nil
}

// Len returns the number of jurisdictions.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// All returns a snapshot of every jurisdiction in source order.
func (r *Repository) All() []Jurisdiction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Jurisdiction, len(r.items))
	copy(out, r.items)
	return out
}

// Names returns every jurisdiction name in source order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.items))
	for i, j := range r.items {
		out[i] = j.Name
	}
	return out
}

// FindByName looks up a jurisdiction by its exact name.
func (r *Repository) FindByName(name string) (Jurisdiction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return Jurisdiction{}, false
	}
	return r.items[i], true
}

// ApplyTaxRates sets the tax rates of every named jurisdiction in a single
// critical section. Names not in the repository are ignored.
func (r *Repository) ApplyTaxRates(rates map[string]TaxRates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, tr := range rates {
		i, ok := r.index[name]
		if !ok {
			continue
		}
		sales, use := tr.Sales, tr.Use
		r.items[i].SalesTaxRate = &sales
		r.items[i].UseTaxRate = &use
	}
}
