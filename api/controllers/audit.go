package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost-app/tradepost-backend/api/responses"
	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/logger"
)

// ListEntityAudit pages through the audit trail of one entity.
func ListEntityAudit(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		rawType := strings.TrimSpace(chi.URLParam(r, "entityType"))
		entityType := enums.AuditEntityType(rawType)
		if !entityType.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid entity type"))
			return
		}

		entityID, err := parseUUIDParam(r, "entityID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByEntity(r.Context(), entityType, entityID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListActorAudit pages through everything one actor has done.
func ListActorAudit(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		actorID, err := parseUUIDParam(r, "actorID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByActor(r.Context(), actorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
