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

// AdminAPI is the minimal interface needed for the platform admin endpoints.
type AdminAPI interface {
	ProvisionAsset(ctx context.Context, in app.ProvisionAssetInput) (domain.Asset, error)
	SetAssetActive(ctx context.Context, in app.SetAssetActiveInput) (domain.Asset, error)
	SetInvestmentLimits(ctx context.Context, in app.SetInvestmentLimitsInput) (domain.Asset, error)
	SetPaused(ctx context.Context, in app.SetPausedInput) error
	GrantRole(ctx context.Context, in app.RoleInput) error
	RevokeRole(ctx context.Context, in app.RoleInput) error
	SetCompliance(ctx context.Context, in app.SetComplianceInput) (domain.ComplianceEntry, error)
	CreditWallet(ctx context.Context, in app.CreditWalletInput) (domain.Wallet, error)
}

// TokenAdminAPI is the minimal interface needed for the supply and registry
// management endpoints.
type TokenAdminAPI interface {
	Premint(ctx context.Context, in app.PremintInput) (domain.Holding, error)
	BatchMint(ctx context.Context, in app.BatchMintInput) error
	BatchBurn(ctx context.Context, in app.BatchBurnInput) error
	ForcedTransfer(ctx context.Context, in app.ForcedTransferInput) (domain.Holding, error)
	SetLockUntil(ctx context.Context, in app.SetLockInput) (domain.Holding, error)
	ProposeMetadataUpdate(ctx context.Context, in app.ProposeMetadataInput) (domain.MetadataUpdate, error)
	ApproveMetadataUpdate(ctx context.Context, in app.ApproveMetadataInput) (domain.MetadataUpdate, error)
}

// EscrowAdminAPI is the minimal interface needed for the emergency
// disbursement endpoint.
type EscrowAdminAPI interface {
	EmergencyWithdrawal(ctx context.Context, in app.EmergencyWithdrawalInput) ([]domain.EscrowMovement, error)
}

type provisionAssetRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	OwnerAccount  string `json:"owner_account"`
	MaxSupply     int64  `json:"max_supply"`
	MinInvestment int64  `json:"min_investment,omitempty"`
	MaxInvestment int64  `json:"max_investment,omitempty"`
	MetadataCID   string `json:"metadata_cid,omitempty"`
}

// HandleProvisionAsset returns an HTTP handler creating an asset together
// with its escrow pool.
func HandleProvisionAsset(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req provisionAssetRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		asset, err := svc.ProvisionAsset(r.Context(), app.ProvisionAssetInput{
			Caller:        CallerFrom(r.Context()),
			Name:          req.Name,
			Symbol:        req.Symbol,
			OwnerAccount:  req.OwnerAccount,
			MaxSupply:     req.MaxSupply,
			MinInvestment: req.MinInvestment,
			MaxInvestment: req.MaxInvestment,
			MetadataCID:   req.MetadataCID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAssetResponse(asset))
	}
}

type updateAssetRequest struct {
	Active        *bool  `json:"active,omitempty"`
	MinInvestment *int64 `json:"min_investment,omitempty"`
	MaxInvestment *int64 `json:"max_investment,omitempty"`
}

// HandleUpdateAsset returns an HTTP handler for lifecycle and limit
// changes. Absent fields are left untouched.
func HandleUpdateAsset(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateAssetRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Active == nil && req.MinInvestment == nil && req.MaxInvestment == nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "no fields to update")
			return
		}
		if (req.MinInvestment == nil) != (req.MaxInvestment == nil) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "min_investment and max_investment must be set together")
			return
		}

		caller := CallerFrom(r.Context())
		assetID := chi.URLParam(r, "assetID")

		var asset domain.Asset
		var err error
		if req.Active != nil {
			asset, err = svc.SetAssetActive(r.Context(), app.SetAssetActiveInput{
				Caller:  caller,
				AssetID: assetID,
				Active:  *req.Active,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
		}
		if req.MinInvestment != nil {
			asset, err = svc.SetInvestmentLimits(r.Context(), app.SetInvestmentLimitsInput{
				Caller:        caller,
				AssetID:       assetID,
				MinInvestment: *req.MinInvestment,
				MaxInvestment: *req.MaxInvestment,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, toAssetResponse(asset))
	}
}

type premintRequest struct {
	Units int64 `json:"units"`
}

// HandlePremint returns an HTTP handler minting into the owner treasury.
func HandlePremint(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req premintRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		holding, err := svc.Premint(r.Context(), app.PremintInput{
			Caller:  CallerFrom(r.Context()),
			AssetID: chi.URLParam(r, "assetID"),
			Units:   req.Units,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldingResponse(holding))
	}
}

type batchRequest struct {
	Accounts []string `json:"accounts"`
	Units    []int64  `json:"units"`
}

// HandleBatchMint returns an HTTP handler minting to several accounts in
// one transaction.
func HandleBatchMint(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.BatchMint(r.Context(), app.BatchMintInput{
			Caller:   CallerFrom(r.Context()),
			AssetID:  chi.URLParam(r, "assetID"),
			Accounts: req.Accounts,
			Units:    req.Units,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleBatchBurn returns an HTTP handler burning from several accounts in
// one transaction.
func HandleBatchBurn(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.BatchBurn(r.Context(), app.BatchBurnInput{
			Caller:   CallerFrom(r.Context()),
			AssetID:  chi.URLParam(r, "assetID"),
			Accounts: req.Accounts,
			Units:    req.Units,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type forcedTransferRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Units int64  `json:"units"`
}

// HandleForcedTransfer returns an HTTP handler moving units on admin
// authority.
func HandleForcedTransfer(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forcedTransferRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		holding, err := svc.ForcedTransfer(r.Context(), app.ForcedTransferInput{
			Caller:  CallerFrom(r.Context()),
			AssetID: chi.URLParam(r, "assetID"),
			From:    req.From,
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

type setLockRequest struct {
	Account string     `json:"account"`
	Until   *time.Time `json:"until,omitempty"`
}

// HandleSetLock returns an HTTP handler setting or clearing a holding's
// lock period. A null until clears the lock.
func HandleSetLock(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setLockRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		var until time.Time
		if req.Until != nil {
			until = *req.Until
		}
		holding, err := svc.SetLockUntil(r.Context(), app.SetLockInput{
			Caller:  CallerFrom(r.Context()),
			AssetID: chi.URLParam(r, "assetID"),
			Account: req.Account,
			Until:   until,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldingResponse(holding))
	}
}

type metadataUpdateResponse struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id"`
	NewCID    string    `json:"new_cid"`
	Threshold int       `json:"threshold"`
	Approvals int       `json:"approvals"`
	Executed  bool      `json:"executed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toMetadataUpdateResponse(update domain.MetadataUpdate) metadataUpdateResponse {
	return metadataUpdateResponse{
		ID:        update.ID,
		AssetID:   update.AssetID,
		NewCID:    update.NewCID,
		Threshold: update.Threshold,
		Approvals: update.Approvals,
		Executed:  update.Executed,
		CreatedAt: update.CreatedAt,
		UpdatedAt: update.UpdatedAt,
	}
}

type proposeMetadataRequest struct {
	NewCID string `json:"new_cid"`
}

// HandleProposeMetadata returns an HTTP handler opening a multi-signer
// metadata change.
func HandleProposeMetadata(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req proposeMetadataRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		update, err := svc.ProposeMetadataUpdate(r.Context(), app.ProposeMetadataInput{
			Caller:  CallerFrom(r.Context()),
			AssetID: chi.URLParam(r, "assetID"),
			NewCID:  req.NewCID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMetadataUpdateResponse(update))
	}
}

// HandleApproveMetadata returns an HTTP handler recording the caller's
// approval, executing the update once the threshold is reached.
func HandleApproveMetadata(svc TokenAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := svc.ApproveMetadataUpdate(r.Context(), app.ApproveMetadataInput{
			Caller:   CallerFrom(r.Context()),
			UpdateID: chi.URLParam(r, "updateID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMetadataUpdateResponse(update))
	}
}

type emergencyWithdrawalRequest struct {
	Recipients []string          `json:"recipients"`
	Amounts    []decimal.Decimal `json:"amounts"`
}

// HandleEmergencyWithdrawal returns an HTTP handler draining pool funds
// while the platform is paused.
func HandleEmergencyWithdrawal(svc EscrowAdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emergencyWithdrawalRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		movements, err := svc.EmergencyWithdrawal(r.Context(), app.EmergencyWithdrawalInput{
			Caller:     CallerFrom(r.Context()),
			AssetID:    chi.URLParam(r, "assetID"),
			Recipients: req.Recipients,
			Amounts:    req.Amounts,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]movementResponse, 0, len(movements))
		for _, m := range movements {
			resp = append(resp, toMovementResponse(m))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type setPausedRequest struct {
	Paused bool `json:"paused"`
}

// HandleSetPaused returns an HTTP handler flipping the circuit breaker.
func HandleSetPaused(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setPausedRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.SetPaused(r.Context(), app.SetPausedInput{
			Caller: CallerFrom(r.Context()),
			Paused: req.Paused,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type roleRequest struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

// HandleGrantRole returns an HTTP handler granting a role.
func HandleGrantRole(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.GrantRole(r.Context(), app.RoleInput{
			Caller:  CallerFrom(r.Context()),
			Account: req.Account,
			Role:    req.Role,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRevokeRole returns an HTTP handler revoking a role.
func HandleRevokeRole(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.RevokeRole(r.Context(), app.RoleInput{
			Caller:  CallerFrom(r.Context()),
			Account: req.Account,
			Role:    req.Role,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type setComplianceRequest struct {
	AssetID  string `json:"asset_id"`
	Account  string `json:"account"`
	Approved bool   `json:"approved"`
}

type complianceResponse struct {
	AssetID   string    `json:"asset_id"`
	Account   string    `json:"account"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HandleSetCompliance returns an HTTP handler approving or revoking an
// account in an asset's registry.
func HandleSetCompliance(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setComplianceRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		entry, err := svc.SetCompliance(r.Context(), app.SetComplianceInput{
			Caller:   CallerFrom(r.Context()),
			AssetID:  req.AssetID,
			Account:  req.Account,
			Approved: req.Approved,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, complianceResponse{
			AssetID:   entry.AssetID,
			Account:   entry.Account,
			Status:    string(entry.Status),
			UpdatedAt: entry.UpdatedAt,
		})
	}
}

type creditWalletRequest struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type walletResponse struct {
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HandleCreditWallet returns an HTTP handler adding settlement funds to an
// account's wallet.
func HandleCreditWallet(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req creditWalletRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		wallet, err := svc.CreditWallet(r.Context(), app.CreditWalletInput{
			Caller:  CallerFrom(r.Context()),
			Account: req.Account,
			Amount:  req.Amount,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, walletResponse{
			Account:   wallet.Account,
			Balance:   wallet.Balance,
			UpdatedAt: wallet.UpdatedAt,
		})
	}
}
