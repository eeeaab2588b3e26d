package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/api/responses"
	"github.com/brewcart/brewcart-backend/internal/realtime"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

type changeStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, storeID uuid.UUID, filter realtime.Filter)
}

// RealtimeStream upgrades to a websocket carrying the active store's change feed,
// filtered by ?tables= and ?events=.
func RealtimeStream(streamer changeStreamer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if streamer == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("realtime"))
			return
		}
		storeID, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		filter, err := realtime.ParseFilter(q.Get("tables"), q.Get("events"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid realtime filter"))
			return
		}

		streamer.Serve(w, r, storeID, filter)
	}
}
