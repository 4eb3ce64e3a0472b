package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradepost-app/tradepost-backend/api/middleware"
	"github.com/tradepost-app/tradepost-backend/api/validators"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

// actorFromRequest rebuilds the acting identity from the auth middleware's
// context values.
func actorFromRequest(r *http.Request) (orders.ActorContext, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return orders.ActorContext{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return orders.ActorContext{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.ActorContext{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}

	return orders.ActorContext{UserID: userID, Role: role}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
