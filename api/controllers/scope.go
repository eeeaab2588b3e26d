package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/api/middleware"
	"github.com/brewcart/brewcart-backend/api/responses"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/logger"
)

func activeStoreID(r *http.Request) (uuid.UUID, error) {
	if middleware.StoreIDFromContext(r.Context()) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	id, ok := middleware.StoreUUID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id")
	}
	return id, nil
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}

func unavailableHandler(name string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, unavailable(name))
	}
}
