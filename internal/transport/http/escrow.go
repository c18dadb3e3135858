package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// EscrowAPI is the minimal interface needed for the escrow endpoints.
type EscrowAPI interface {
	PoolBalance(ctx context.Context, assetID string) (domain.EscrowAccount, error)
	Deposit(ctx context.Context, in app.DepositInput) (domain.EscrowMovement, error)
}

type escrowResponse struct {
	AssetID        string          `json:"asset_id"`
	CustodyAccount string          `json:"custody_account"`
	Balance        decimal.Decimal `json:"balance"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type movementResponse struct {
	ID           string          `json:"id"`
	AssetID      string          `json:"asset_id"`
	Kind         string          `json:"kind"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	OrderID      string          `json:"order_id,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func toMovementResponse(m domain.EscrowMovement) movementResponse {
	return movementResponse{
		ID:           m.ID,
		AssetID:      m.AssetID,
		Kind:         string(m.Kind),
		Counterparty: m.Counterparty,
		Amount:       m.Amount,
		OrderID:      m.OrderID,
		OccurredAt:   m.At,
	}
}

// HandleGetEscrow returns an HTTP handler for reading an asset's pool.
func HandleGetEscrow(svc EscrowAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		escrow, err := svc.PoolBalance(r.Context(), chi.URLParam(r, "assetID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, escrowResponse{
			AssetID:        escrow.AssetID,
			CustodyAccount: escrow.CustodyAccount,
			Balance:        escrow.Balance,
			UpdatedAt:      escrow.UpdatedAt,
		})
	}
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HandleDeposit returns an HTTP handler moving funds from the caller's
// wallet into an asset's pool.
func HandleDeposit(svc EscrowAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req depositRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		movement, err := svc.Deposit(r.Context(), app.DepositInput{
			AssetID: chi.URLParam(r, "assetID"),
			From:    CallerFrom(r.Context()),
			Amount:  req.Amount,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMovementResponse(movement))
	}
}
