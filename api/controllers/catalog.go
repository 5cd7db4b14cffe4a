package controllers

import (
	"net/http"

	"github.com/avdeevlav/sborka-backend/api/responses"
	"github.com/avdeevlav/sborka-backend/api/validators"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/pagination"
)

func ActiveCollection(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		collection, err := catalogService.ActiveCollection(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, collectionView(collection))
	}
}

func CollectionCatalog(catalogService catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogService == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		collectionID, err := validators.ParsePathID(r, "collectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		collection, err := catalogService.GetCollection(r.Context(), collectionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

		page, err := catalogService.ListCatalog(r.Context(), collectionID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"collection":  collectionView(collection),
			"products":    page.Entries,
			"next_cursor": page.NextCursor,
		})
	}
}
