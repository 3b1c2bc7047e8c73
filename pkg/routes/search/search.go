// Package search exposes the catalog search endpoint.
package search

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/kozydot/findr/pkg/catalog"
	searchengine "github.com/kozydot/findr/pkg/search"
)

// Register registers search routes
func Register(g *echo.Group) {
	g.GET("", Search)
}

// Search ranks the current catalog snapshot against the q parameter. An
// empty query returns the whole catalog.
func Search(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")

	ctx, cache, err := ectoinject.GetContext[*catalog.SnapshotCache](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "catalog unavailable")
	}
	_, engine, err := ectoinject.GetContext[*searchengine.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "search unavailable")
	}

	snapshot, err := cache.Snapshot(ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "catalog fetch failed")
	}

	return c.JSON(http.StatusOK, engine.Search(snapshot, query))
}
