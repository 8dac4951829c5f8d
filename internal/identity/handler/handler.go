// Package handler exposes identifier allocation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crest/internal/identity/models"
	"crest/internal/identity/service"
	"crest/internal/platform/middleware"
	id "crest/pkg/domain"
	"crest/pkg/platform/httputil"
	"crest/pkg/requestcontext"

	dErrors "crest/pkg/domain-errors"
)

// Service defines the identity operations the handler needs.
type Service interface {
	EnsureIdentity(ctx context.Context, req service.EnsureRequest) (models.IdentityRecord, error)
	Get(ctx context.Context, owner id.UserID) (models.IdentityRecord, error)
}

// Handler handles identity endpoints.
type Handler struct {
	identity  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a new identity Handler.
func New(identity Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{identity: identity, logger: logger, validator: validator}
}

// Register mounts the identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/identities/{userID}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(h.logger, id.RoleCollegeAdmin))
			r.Post("/admin/identities", h.handleEnsure)
		})
	})
}

type ensureRequest struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	ContactRef     string `json:"contact_ref"`
	AdmissionYear  int    `json:"admission_year"`
	DepartmentCode string `json:"department_code"`
}

type identityResponse struct {
	InstitutionalID string    `json:"institutional_id"`
	UserID          string    `json:"user_id"`
	LedgerTxRef     string    `json:"ledger_tx_ref,omitempty"`
	AssignedAt      time.Time `json:"assigned_at"`
}

func toIdentityResponse(record models.IdentityRecord) identityResponse {
	return identityResponse{
		InstitutionalID: record.InstitutionalID,
		UserID:          record.Owner.String(),
		LedgerTxRef:     record.LedgerTxRef,
		AssignedAt:      record.AssignedAt,
	}
}

func (h *Handler) handleEnsure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	owner, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.identity.EnsureIdentity(ctx, service.EnsureRequest{
		Owner:          owner,
		Name:           req.Name,
		ContactRef:     req.ContactRef,
		AdmissionYear:  req.AdmissionYear,
		DepartmentCode: req.DepartmentCode,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "identity allocation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toIdentityResponse(record))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.identity.Get(ctx, owner)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "identity lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toIdentityResponse(record))
}
