package locations

import (
	"database/sql"

	apphttp "fm_servicios_backend/internal/http"
	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module wires the location catalog HTTP routes.
type Module struct {
	catalog Catalog
	handler *Handler
}

func NewModule(catalog Catalog) *Module {
	return &Module{catalog: catalog, handler: NewHandler(catalog)}
}

// NewCatalog picks the catalog implementation from configuration. db and rdb
// may be nil, in which case the corresponding layer is skipped.
func NewCatalog(cfg config.LocationsConfig, db *sql.DB, rdb *redis.Client, log *logger.Logger) (Catalog, error) {
	static, err := NewStaticCatalog()
	if err != nil {
		return nil, err
	}

	var catalog Catalog = static
	if cfg.GetLocationsSource() == "db" && db != nil {
		catalog = NewSQLCatalog(db, static)
	}
	if rdb != nil {
		catalog = NewCachedCatalog(catalog, rdb, cfg.GetLocationsCacheTTL(), log)
	}
	return catalog, nil
}

// Catalog exposes the catalog to other modules.
func (m *Module) Catalog() Catalog {
	return m.catalog
}

func (m *Module) Name() string {
	return "locations"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/locations")
	group.GET("/regions", m.handler.ListRegions)
	group.GET("/regions/:region/comunas", m.handler.ListComunas)
}

var _ apphttp.Module = (*Module)(nil)
