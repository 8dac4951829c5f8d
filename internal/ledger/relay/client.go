// Package relay implements the ledger gateway over a signing relay.
//
// The relay holds the authorized signer key and fronts the three contracts
// (identity, certificate, badge) with a JSON API. The client classifies every
// failure into the two ledger sentinels so callers never see transport errors.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"crest/internal/ledger"
	"crest/internal/platform/config"
	"crest/pkg/platform/sentinel"
)

var tracer = otel.Tracer("crest/ledger/relay")

// Client talks to the ledger relay. All calls bound their round trip with the
// configured timeout; a timeout is reported as sentinel.ErrLedgerUnavailable.
type Client struct {
	http   *http.Client
	cfg    config.LedgerConfig
	logger *slog.Logger
}

// New constructs a relay-backed gateway.
func New(cfg config.LedgerConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg.Timeout = timeout
	return &Client{
		http:   &http.Client{Timeout: timeout},
		cfg:    cfg,
		logger: logger,
	}
}

type mintRequest struct {
	Fields map[string]string `json:"fields"`
}

func (c *Client) MintIdentity(ctx context.Context, institutionalID, name, contactRef string) (ledger.MintReceipt, error) {
	receipt, err := c.mint(ctx, c.cfg.IdentityContract, map[string]string{
		"institutional_id": institutionalID,
		"name":             name,
		"contact_ref":      contactRef,
	})
	if err != nil {
		return ledger.MintReceipt{}, err
	}
	// Identity mints carry no ledger record id; the institutional id is the key.
	return ledger.MintReceipt{TxRef: receipt.TxRef}, nil
}

func (c *Client) MintCertificate(ctx context.Context, ownerID, title, description, category string) (ledger.MintReceipt, error) {
	receipt, err := c.mint(ctx, c.cfg.CertificateContract, map[string]string{
		"owner_id":    ownerID,
		"title":       title,
		"description": description,
		"category":    category,
	})
	if err != nil {
		return ledger.MintReceipt{}, err
	}
	return c.toMintReceipt(ctx, receipt, c.cfg.CertificateContract, topicCertificateIssued)
}

func (c *Client) MintBadge(ctx context.Context, ownerID, name, category, imageRef string) (ledger.MintReceipt, error) {
	receipt, err := c.mint(ctx, c.cfg.BadgeContract, map[string]string{
		"owner_id":  ownerID,
		"name":      name,
		"category":  category,
		"image_ref": imageRef,
	})
	if err != nil {
		return ledger.MintReceipt{}, err
	}
	return c.toMintReceipt(ctx, receipt, c.cfg.BadgeContract, topicBadgeAwarded)
}

// toMintReceipt attaches the decoded record id when extraction succeeds. A
// decode failure is logged and the receipt is returned without a record id so
// no wrong id is ever stored.
func (c *Client) toMintReceipt(ctx context.Context, receipt txReceipt, contract, signature string) (ledger.MintReceipt, error) {
	out := ledger.MintReceipt{TxRef: receipt.TxRef}
	recordID, err := extractRecordID(receipt, contract, signature)
	if err != nil {
		c.logger.WarnContext(ctx, "ledger receipt decode failed, continuing without record id",
			"tx_ref", receipt.TxRef,
			"error", err)
		return out, nil
	}
	out.RecordID = recordID
	out.HasRecordID = true
	return out, nil
}

func (c *Client) ReadIdentity(ctx context.Context, institutionalID string) (ledger.IdentityRecord, error) {
	var out struct {
		InstitutionalID string `json:"institutional_id"`
		Name            string `json:"name"`
		ContactRef      string `json:"contact_ref"`
		Valid           bool   `json:"valid"`
	}
	path := fmt.Sprintf("/contracts/%s/identities/%s", c.cfg.IdentityContract, institutionalID)
	if err := c.get(ctx, path, &out); err != nil {
		return ledger.IdentityRecord{}, err
	}
	return ledger.IdentityRecord{
		InstitutionalID: out.InstitutionalID,
		Name:            out.Name,
		ContactRef:      out.ContactRef,
		Valid:           out.Valid,
	}, nil
}

func (c *Client) ReadCertificate(ctx context.Context, recordID int64) (ledger.CertificateRecord, error) {
	var out struct {
		OwnerID     string    `json:"owner_id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		Valid       bool      `json:"valid"`
		IssuedAt    time.Time `json:"issued_at"`
	}
	path := fmt.Sprintf("/contracts/%s/records/%d", c.cfg.CertificateContract, recordID)
	if err := c.get(ctx, path, &out); err != nil {
		return ledger.CertificateRecord{}, err
	}
	return ledger.CertificateRecord{
		OwnerID:     out.OwnerID,
		Title:       out.Title,
		Description: out.Description,
		Category:    out.Category,
		Valid:       out.Valid,
		IssuedAt:    out.IssuedAt,
	}, nil
}

func (c *Client) ReadBadge(ctx context.Context, recordID int64) (ledger.BadgeRecord, error) {
	var out struct {
		OwnerID  string `json:"owner_id"`
		Name     string `json:"name"`
		Category string `json:"category"`
		ImageRef string `json:"image_ref"`
		Valid    bool   `json:"valid"`
	}
	path := fmt.Sprintf("/contracts/%s/records/%d", c.cfg.BadgeContract, recordID)
	if err := c.get(ctx, path, &out); err != nil {
		return ledger.BadgeRecord{}, err
	}
	return ledger.BadgeRecord{
		OwnerID:  out.OwnerID,
		Name:     out.Name,
		Category: out.Category,
		ImageRef: out.ImageRef,
		Valid:    out.Valid,
	}, nil
}

func (c *Client) VerifyIdentity(ctx context.Context, institutionalID string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	path := fmt.Sprintf("/contracts/%s/verify/%s", c.cfg.IdentityContract, institutionalID)
	if err := c.get(ctx, path, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) mint(ctx context.Context, contract string, fields map[string]string) (txReceipt, error) {
	ctx, span := tracer.Start(ctx, "ledger.mint", trace.WithAttributes(
		attribute.String("ledger.contract", contract),
	))
	defer span.End()

	body, err := json.Marshal(mintRequest{Fields: fields})
	if err != nil {
		return txReceipt{}, fmt.Errorf("marshal mint request: %w", err)
	}

	var receipt txReceipt
	err = c.do(ctx, http.MethodPost, fmt.Sprintf("/contracts/%s/mint", contract), bytes.NewReader(body), &receipt)
	if err != nil {
		return txReceipt{}, err
	}
	if receipt.TxRef == "" {
		return txReceipt{}, fmt.Errorf("%w: mint response missing tx_ref", sentinel.ErrLedgerRejected)
	}
	return receipt, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, span := tracer.Start(ctx, "ledger.read", trace.WithAttributes(
		attribute.String("ledger.path", path),
	))
	defer span.End()
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.RelayURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.RelayURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: build request: %v", sentinel.ErrLedgerUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Includes context deadline exceeded; a slow ledger is an absent ledger.
		return fmt.Errorf("%w: %v", sentinel.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", sentinel.ErrLedgerRejected, err)
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: relay returned %d", sentinel.ErrLedgerRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: relay returned %d", sentinel.ErrLedgerUnavailable, resp.StatusCode)
	}
}
