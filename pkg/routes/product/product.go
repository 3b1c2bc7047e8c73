// Package product exposes the product read path: one-shot aggregate fetch
// and a live websocket that streams the aggregate as reconciliation refines
// it.
package product

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/kozydot/findr/pkg/catalog"
	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/reconcile"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The storefront is served from a separate origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Register registers product routes
func Register(g *echo.Group) {
	g.GET("/:id", GetProduct)
	g.GET("/:id/live", LiveProduct)
}

// GetProduct returns the current upstream aggregate for a product. No
// session is started; callers wanting progressive refinement use the live
// endpoint.
func GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "product id is required")
	}

	ctx, client, err := ectoinject.GetContext[*catalog.Client](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "catalog unavailable")
	}

	record, err := client.FetchProduct(ctx, id)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, record)
}

// LiveProduct upgrades to a websocket and streams the product aggregate: one
// message per merge, each a full snapshot. The session ends when the client
// disconnects or a write fails.
func LiveProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "product id is required")
	}

	ctx, engine, err := ectoinject.GetContext[*reconcile.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "reconciliation unavailable")
	}
	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "logger unavailable")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := logger.WithContext(ctx).WithFields(map[string]any{"product_id": id})

	// Merges arrive on the session goroutines; the websocket wants a single
	// writer. Snapshots funnel through a channel drained below.
	snapshots := make(chan models.ProductRecord, 16)
	session, err := engine.Start(ctx, id, func(rec models.ProductRecord) {
		select {
		case snapshots <- rec:
		default:
			// A slow client drops intermediate snapshots; the next merge
			// carries all accumulated state anyway.
		}
	})
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			_ = conn.WriteJSON(map[string]string{"error": "product not found"})
			return nil
		}
		log.WithError(err).Error("Failed to start reconciliation session")
		_ = conn.WriteJSON(map[string]string{"error": "failed to load product"})
		return nil
	}
	defer session.Stop()

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec := <-snapshots:
			if err := conn.WriteJSON(rec); err != nil {
				log.WithError(err).Debug("Live product write failed; closing session")
				return nil
			}
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
