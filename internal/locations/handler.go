package locations

import (
	"net/http"

	"fm_servicios_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the catalog for address forms.
type Handler struct {
	catalog Catalog
}

func NewHandler(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// ListRegions handles GET /api/v1/locations/regions
func (h *Handler) ListRegions(c *gin.Context) {
	regions, err := h.catalog.Regions(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"regions": regions})
}

// ListComunas handles GET /api/v1/locations/regions/:region/comunas
func (h *Handler) ListComunas(c *gin.Context) {
	comunas, err := h.catalog.Comunas(c.Request.Context(), c.Param("region"))
	if httpkit.HandleError(c, err) {
		return
	}
	if len(comunas) == 0 {
		httpkit.Error(c, http.StatusNotFound, "region not found", nil)
		return
	}
	httpkit.OK(c, gin.H{"region": c.Param("region"), "comunas": comunas})
}
