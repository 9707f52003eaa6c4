// Package locations provides the Chilean region and comuna catalog used to
// validate service addresses.
package locations

import (
	"context"
	"strings"

	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/slug"
)

// Catalog lists regions and the comunas inside each one.
type Catalog interface {
	Regions(ctx context.Context) ([]string, error)
	Comunas(ctx context.Context, region string) ([]string, error)
}

// Resolve matches region and comuna against the catalog ignoring case and
// accents, and returns their canonical spelling. An empty comuna is allowed.
func Resolve(ctx context.Context, c Catalog, region, comuna string) (string, string, error) {
	region, comuna = strings.TrimSpace(region), strings.TrimSpace(comuna)
	if region == "" {
		if comuna != "" {
			return "", "", apperr.Validation("region is required when comuna is set").WithField("region")
		}
		return "", "", nil
	}

	regions, err := c.Regions(ctx)
	if err != nil {
		return "", "", err
	}
	canonRegion, ok := match(regions, region)
	if !ok {
		return "", "", apperr.Validation("unknown region").WithField("region")
	}
	if comuna == "" {
		return canonRegion, "", nil
	}

	comunas, err := c.Comunas(ctx, canonRegion)
	if err != nil {
		return "", "", err
	}
	canonComuna, ok := match(comunas, comuna)
	if !ok {
		return "", "", apperr.Validation("comuna does not belong to region").WithField("comuna")
	}
	return canonRegion, canonComuna, nil
}

func match(candidates []string, want string) (string, bool) {
	key := slug.Fold(want)
	for _, c := range candidates {
		if slug.Fold(c) == key {
			return c, true
		}
	}
	return "", false
}
