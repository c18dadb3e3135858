package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

func TestHandleGetEscrow(t *testing.T) {
	t.Parallel()

	svc := &stubEscrowService{escrow: domain.EscrowAccount{
		AssetID:        "asset-1",
		CustodyAccount: "escrow:asset-1",
		Balance:        decimal.RequireFromString("1500.50"),
	}}
	r := chi.NewRouter()
	r.Get("/escrow/{assetID}", HandleGetEscrow(svc))

	req := httptest.NewRequest(http.MethodGet, "/escrow/asset-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	for _, substr := range []string{`"custody_account":"escrow:asset-1"`, `"balance":"1500.5"`} {
		if !strings.Contains(rec.Body.String(), substr) {
			t.Fatalf("expected response to contain %q, got %q", substr, rec.Body.String())
		}
	}

	missing := &stubEscrowService{err: domain.ErrEscrowNotFound}
	r2 := chi.NewRouter()
	r2.Get("/escrow/{assetID}", HandleGetEscrow(missing))

	req = httptest.NewRequest(http.MethodGet, "/escrow/asset-9", nil)
	rec = httptest.NewRecorder()
	r2.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleDeposit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"amount":"250.00"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"kind":"deposit"`,
		},
		{
			name:           "invalid json",
			body:           `{"amount":`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "non-positive amount",
			body:           `{"amount":"0"}`,
			serviceErr:     domain.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeValidationFailed,
		},
		{
			name:           "insufficient wallet",
			body:           `{"amount":"9999"}`,
			serviceErr:     domain.ErrInsufficientFunds,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeResourceExhausted,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubEscrowService{
				movement: domain.EscrowMovement{
					ID:           "mov-1",
					AssetID:      "asset-1",
					Kind:         domain.EscrowMovementDeposit,
					Counterparty: "alice",
					Amount:       decimal.RequireFromString("250.00"),
				},
				err: tt.serviceErr,
			}
			r := chi.NewRouter()
			r.Post("/escrow/{assetID}/deposits", HandleDeposit(svc))

			req := httptest.NewRequest(http.MethodPost, "/escrow/asset-1/deposits", bytes.NewBufferString(tt.body))
			req = withCaller(req, "alice")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleDepositPlumbsCaller(t *testing.T) {
	t.Parallel()

	svc := &stubEscrowService{movement: domain.EscrowMovement{ID: "mov-1"}}
	r := chi.NewRouter()
	r.Post("/escrow/{assetID}/deposits", HandleDeposit(svc))

	req := httptest.NewRequest(http.MethodPost, "/escrow/asset-1/deposits", bytes.NewBufferString(`{"amount":"75"}`))
	req = withCaller(req, "carol")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastDeposit.From != "carol" || svc.lastDeposit.AssetID != "asset-1" {
		t.Fatalf("unexpected input: %+v", svc.lastDeposit)
	}
	if !svc.lastDeposit.Amount.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected amount: %s", svc.lastDeposit.Amount)
	}
}

type stubEscrowService struct {
	escrow   domain.EscrowAccount
	movement domain.EscrowMovement
	err      error

	lastDeposit app.DepositInput
}

func (s *stubEscrowService) PoolBalance(_ context.Context, assetID string) (domain.EscrowAccount, error) {
	if s.err != nil {
		return domain.EscrowAccount{}, s.err
	}
	return s.escrow, nil
}

func (s *stubEscrowService) Deposit(_ context.Context, in app.DepositInput) (domain.EscrowMovement, error) {
	s.lastDeposit = in
	if s.err != nil {
		return domain.EscrowMovement{}, s.err
	}
	return s.movement, nil
}
