package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/jurisdiction-cli/internal/config"
	"github.com/sells-group/jurisdiction-cli/internal/db"
	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/geometry/geoslocal"
	"github.com/sells-group/jurisdiction-cli/internal/geometry/postgis"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
	"github.com/sells-group/jurisdiction-cli/internal/tiger"
)

// storePool connects to store.database_url.
func storePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	fmt.Println("Connected to database")
	return pool, nil
}

// workspace bundles what a command needs to run the engine. close releases
// the GEOS geometries and the pool, whichever were opened.
type workspace struct {
	repo     *jurisdiction.Repository
	provider geometry.Provider
	pool     *pgxpool.Pool
	close    func()
	loadTime time.Duration
}

// openWorkspace loads jurisdictions from the configured source and pairs them
// with the configured geometry provider. With geometry.provider geos, shapes
// stored in PostGIS are pulled once and evaluated in-process.
func openWorkspace(ctx context.Context, c *config.Config) (*workspace, error) {
	start := time.Now()
	ws, err := loadWorkspace(ctx, c)
	if err != nil {
		return nil, err
	}
	ws.loadTime = time.Since(start)
	return ws, nil
}

func loadWorkspace(ctx context.Context, c *config.Config) (*workspace, error) {
	switch c.Source.Kind {
	case config.SourceShapefile:
		geos := geoslocal.New()
		repo, err := jurisdiction.Load(ctx, &tiger.ShapefileSource{Path: c.Source.Path, Registrar: geos})
		if err != nil {
			geos.Close()
			return nil, err
		}
		return &workspace{repo: repo, provider: geos, close: geos.Close}, nil

	case config.SourcePostGIS:
		pool, err := storePool(ctx)
		if err != nil {
			return nil, err
		}
		if c.Geometry.Provider == config.ProviderGEOS {
			geos := geoslocal.New()
			repo, err := jurisdiction.Load(ctx, &postgis.Source{Pool: pool, Registrar: geos})
			if err != nil {
				geos.Close()
				pool.Close()
				return nil, err
			}
			return &workspace{repo: repo, provider: geos, pool: pool, close: func() {
				geos.Close()
				pool.Close()
			}}, nil
		}
		repo, err := jurisdiction.Load(ctx, &postgis.Source{Pool: pool})
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &workspace{repo: repo, provider: postgis.NewProvider(pool), pool: pool, close: pool.Close}, nil

	default:
		return nil, eris.Errorf("unknown source.kind %q", c.Source.Kind)
	}
}
