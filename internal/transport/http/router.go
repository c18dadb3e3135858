// Package http exposes the settlement engine as a JSON API. Handlers stay
// thin: decode, call the service, map the error taxonomy onto statuses.
package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *log.Logger
}

// NewRouter wires every endpoint. Everything except the health probe sits
// behind the bearer-token middleware.
func NewRouter(engine *app.Engine, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.AllowedOrigins))
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthenticator(cfg.JWTSecret))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", HandleCreateOrder(engine.Orders))
			r.Get("/", HandleListOrders(engine.Orders))
			r.Get("/{orderID}", HandleGetOrder(engine.Orders))
			r.Post("/{orderID}/cancel", HandleCancelOrder(engine.Orders))
			r.Post("/{orderID}/finalize", HandleFinalizeOrder(engine.Orders))
			r.Post("/{orderID}/refund", HandleRefundOrder(engine.Orders))
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/{assetID}", HandleGetAsset(engine.Tokens))
			r.Get("/{assetID}/balances/{account}", HandleGetBalance(engine.Tokens))
			r.Post("/{assetID}/transfers", HandleTransfer(engine.Tokens))
		})

		r.Route("/escrow", func(r chi.Router) {
			r.Get("/{assetID}", HandleGetEscrow(engine.Escrow))
			r.Post("/{assetID}/deposits", HandleDeposit(engine.Escrow))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/assets", HandleProvisionAsset(engine.Admin))
			r.Patch("/assets/{assetID}", HandleUpdateAsset(engine.Admin))
			r.Post("/assets/{assetID}/premint", HandlePremint(engine.Tokens))
			r.Post("/assets/{assetID}/mint-batch", HandleBatchMint(engine.Tokens))
			r.Post("/assets/{assetID}/burn-batch", HandleBatchBurn(engine.Tokens))
			r.Post("/assets/{assetID}/forced-transfers", HandleForcedTransfer(engine.Tokens))
			r.Post("/assets/{assetID}/locks", HandleSetLock(engine.Tokens))
			r.Post("/assets/{assetID}/metadata-updates", HandleProposeMetadata(engine.Tokens))
			r.Post("/metadata-updates/{updateID}/approvals", HandleApproveMetadata(engine.Tokens))
			r.Post("/assets/{assetID}/emergency-withdrawal", HandleEmergencyWithdrawal(engine.Escrow))
			r.Post("/pause", HandleSetPaused(engine.Admin))
			r.Post("/roles", HandleGrantRole(engine.Admin))
			r.Delete("/roles", HandleRevokeRole(engine.Admin))
			r.Post("/compliance", HandleSetCompliance(engine.Admin))
			r.Post("/wallets/credit", HandleCreditWallet(engine.Admin))
		})
	})

	return r
}
