package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

// AssetAPI is the minimal interface needed for the public asset endpoints.
type AssetAPI interface {
	GetAsset(ctx context.Context, assetID string) (domain.Asset, error)
	BalanceOf(ctx context.Context, assetID, account string) (domain.Holding, error)
	Transfer(ctx context.Context, in app.TransferInput) (domain.Holding, error)
}

type assetResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	OwnerAccount  string    `json:"owner_account"`
	Active        bool      `json:"active"`
	MaxSupply     int64     `json:"max_supply"`
	TotalSupply   int64     `json:"total_supply"`
	MinInvestment int64     `json:"min_investment"`
	MaxInvestment int64     `json:"max_investment"`
	MetadataCID   string    `json:"metadata_cid,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAssetResponse(asset domain.Asset) assetResponse {
	return assetResponse{
		ID:            asset.ID,
		Name:          asset.Name,
		Symbol:        asset.Symbol,
		OwnerAccount:  asset.OwnerAccount,
		Active:        asset.Active,
		MaxSupply:     asset.MaxSupply,
		TotalSupply:   asset.TotalSupply,
		MinInvestment: asset.MinInvestment,
		MaxInvestment: asset.MaxInvestment,
		MetadataCID:   asset.MetadataCID,
		CreatedAt:     asset.CreatedAt,
		UpdatedAt:     asset.UpdatedAt,
	}
}

type holdingResponse struct {
	AssetID     string     `json:"asset_id"`
	Account     string     `json:"account"`
	Balance     int64      `json:"balance"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func toHoldingResponse(holding domain.Holding) holdingResponse {
	return holdingResponse{
		AssetID:     holding.AssetID,
		Account:     holding.Account,
		Balance:     holding.Balance,
		LockedUntil: holding.LockedUntil,
	}
}

// HandleGetAsset returns an HTTP handler for reading one asset.
func HandleGetAsset(svc AssetAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := svc.GetAsset(r.Context(), chi.URLParam(r, "assetID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAssetResponse(asset))
	}
}

// HandleGetBalance returns an HTTP handler for reading one account's
// position in an asset.
func HandleGetBalance(svc AssetAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holding, err := svc.BalanceOf(r.Context(), chi.URLParam(r, "assetID"), chi.URLParam(r, "account"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldingResponse(holding))
	}
}

type transferRequest struct {
	To    string `json:"to"`
	Units int64  `json:"units"`
}

// HandleTransfer returns an HTTP handler moving units from the caller to
// another account.
func HandleTransfer(svc AssetAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		holding, err := svc.Transfer(r.Context(), app.TransferInput{
			Caller:  CallerFrom(r.Context()),
			AssetID: chi.URLParam(r, "assetID"),
			To:      req.To,
			Units:   req.Units,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldingResponse(holding))
	}
}
