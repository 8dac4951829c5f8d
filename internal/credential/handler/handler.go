// Package handler exposes credential issuance, claiming, listing, and public
// verification over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crest/internal/credential/models"
	"crest/internal/credential/service"
	"crest/internal/platform/middleware"
	id "crest/pkg/domain"
	"crest/pkg/platform/httputil"
	"crest/pkg/requestcontext"

	dErrors "crest/pkg/domain-errors"
)

// Service defines the credential operations the handler needs.
type Service interface {
	Issue(ctx context.Context, req service.IssueRequest) (service.IssueResult, error)
	Claim(ctx context.Context, credentialID id.CredentialID, caller id.UserID, token string) (models.Credential, error)
	ListForUser(ctx context.Context, user id.UserID) ([]models.Credential, error)
	Verify(ctx context.Context, credentialID id.CredentialID) (service.Verification, error)
}

// Handler handles credential endpoints.
type Handler struct {
	credentials Service
	logger      *slog.Logger
	validator   middleware.TokenValidator
}

// New creates a new credential Handler.
func New(credentials Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{credentials: credentials, logger: logger, validator: validator}
}

// Register mounts the credential routes. Verification is public; everything
// else requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{id}", h.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/credentials/{id}/claim", h.handleClaim)
		r.Get("/users/{userID}/credentials", h.handleList)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(h.logger, id.RoleClubAdmin, id.RoleCollegeAdmin))
			r.Post("/credentials", h.handleIssue)
		})
	})
}

type issueRequest struct {
	Kind           string `json:"kind"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	ImageRef       string `json:"image_ref"`
	RecipientID    string `json:"recipient_id"`
	RelatedEventID string `json:"related_event_id"`
}

type credentialResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	ImageRef       string    `json:"image_ref,omitempty"`
	RecipientID    string    `json:"recipient_id"`
	IssuerID       string    `json:"issuer_id"`
	RelatedEventID string    `json:"related_event_id,omitempty"`
	LedgerTxRef    string    `json:"ledger_tx_ref,omitempty"`
	LedgerRecordID int64     `json:"ledger_record_id,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	Claimed        bool      `json:"claimed"`
}

type issueResponse struct {
	credentialResponse
	ClaimToken string `json:"claim_token,omitempty"`
}

func toCredentialResponse(credential models.Credential) credentialResponse {
	resp := credentialResponse{
		ID:             credential.ID.String(),
		Kind:           string(credential.Kind),
		Title:          credential.Title,
		Description:    credential.Description,
		Category:       credential.Category,
		ImageRef:       credential.ImageRef,
		RecipientID:    credential.Recipient.String(),
		IssuerID:       credential.Issuer.String(),
		LedgerTxRef:    credential.LedgerTxRef,
		LedgerRecordID: credential.LedgerRecordID,
		IssuedAt:       credential.IssuedAt,
		Claimed:        credential.Claimed,
	}
	if !credential.RelatedEvent.IsZero() {
		resp.RelatedEventID = credential.RelatedEvent.String()
	}
	return resp
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recipient, err := id.ParseUserID(req.RecipientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var relatedEvent id.EventID
	if req.RelatedEventID != "" {
		relatedEvent, err = id.ParseEventID(req.RelatedEventID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.credentials.Issue(ctx, service.IssueRequest{
		Kind:         kind,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		ImageRef:     req.ImageRef,
		Recipient:    recipient,
		Issuer:       requestcontext.UserID(ctx),
		RelatedEvent: relatedEvent,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "credential issuance failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueResponse{
		credentialResponse: toCredentialResponse(result.Credential),
		ClaimToken:         result.ClaimToken,
	})
}

type claimRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	credential, err := h.credentials.Claim(ctx, credentialID, requestcontext.UserID(ctx), req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(credential))
}

type listResponse struct {
	Owned   []credentialResponse `json:"owned"`
	Pending []credentialResponse `json:"pending"`
}

// handleList splits the user's credentials into owned and pending: unclaimed
// certificates are not owned yet, they await the recipient's claim.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credentials, err := h.credentials.ListForUser(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{Owned: []credentialResponse{}, Pending: []credentialResponse{}}
	for _, credential := range credentials {
		if credential.Claimed {
			resp.Owned = append(resp.Owned, toCredentialResponse(credential))
		} else {
			resp.Pending = append(resp.Pending, toCredentialResponse(credential))
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type verifyResponse struct {
	Found           bool                `json:"found"`
	LedgerConfirmed bool                `json:"ledger_confirmed"`
	Credential      *credentialResponse `json:"credential,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verification, err := h.credentials.Verify(ctx, credentialID)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := verifyResponse{Found: verification.Found, LedgerConfirmed: verification.LedgerConfirmed}
	if verification.Found {
		record := toCredentialResponse(verification.Record)
		resp.Credential = &record
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
