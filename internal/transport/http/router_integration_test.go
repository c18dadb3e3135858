package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
	"github.com/bhargavryzer/Ownmali-sub000/internal/storage/postgres"
	"github.com/bhargavryzer/Ownmali-sub000/internal/testutil"
)

// TestRouter_BuyOrderSettlement_HTTPIntegration walks the happy path of a
// buy order end to end through the wire: provision, compliance, funding,
// order creation, finalization, and the resulting balances.
func TestRouter_BuyOrderSettlement_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	platform := postgres.NewPlatformRepository(pool)
	engine, err := app.NewEngine(app.Config{
		OrderPolicy:       app.OrderPolicyOpen,
		MaxBatchSize:      100,
		MetadataThreshold: 2,
	}, app.Deps{
		Orders: postgres.NewOrderRepository(pool),
		Tokens: postgres.NewTokenRepository(pool),
		Escrow: postgres.NewEscrowRepository(pool),
		Admin:  postgres.NewAdminRepository(pool),
		Roles:  platform,
		Gate:   compliance.NewRegistryGate(platform),
	})
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	if err := engine.Admin.Bootstrap(ctx, "admin"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	router := NewRouter(engine, RouterConfig{
		JWTSecret: testSecret,
		Logger:    log.New(io.Discard, "", 0),
	})

	expiry := time.Now().Add(time.Hour)
	adminToken := signTestToken(t, testSecret, "admin", expiry)
	aliceToken := signTestToken(t, testSecret, "alice", expiry)
	deskToken := signTestToken(t, testSecret, "desk", expiry)

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		t.Helper()
		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// The health probe is the only open route.
	if rec := do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected status 200, got %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/orders", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: expected status 401, got %d", rec.Code)
	}

	rec := do(http.MethodPost, "/admin/assets", adminToken,
		`{"name":"Harbor Tower","symbol":"HBR","owner_account":"owner","max_supply":10000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("provision: expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var asset assetResponse
	if err := json.NewDecoder(rec.Body).Decode(&asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}

	if rec := do(http.MethodPost, "/admin/roles", adminToken,
		`{"account":"desk","role":"finalizer"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("grant role: expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/admin/compliance", adminToken,
		`{"asset_id":"`+asset.ID+`","account":"alice","approved":true}`); rec.Code != http.StatusOK {
		t.Fatalf("approve alice: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/admin/wallets/credit", adminToken,
		`{"account":"alice","amount":"1000"}`); rec.Code != http.StatusOK {
		t.Fatalf("credit wallet: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/orders", aliceToken,
		`{"asset_id":"`+asset.ID+`","side":"buy","units":100,"price":"1000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var order orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Status != string(domain.OrderStatusPending) {
		t.Fatalf("expected pending order, got %s", order.Status)
	}

	// Only accounts holding the finalize capability may settle.
	if rec := do(http.MethodPost, "/orders/"+order.ID+"/finalize", aliceToken, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("investor finalize: expected status 403, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/orders/"+order.ID+"/finalize", deskToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var settled orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&settled); err != nil {
		t.Fatalf("decode settled order: %v", err)
	}
	if settled.Status != string(domain.OrderStatusFinalized) {
		t.Fatalf("expected finalized order, got %s", settled.Status)
	}

	rec = do(http.MethodGet, "/assets/"+asset.ID+"/balances/alice", aliceToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var holding holdingResponse
	if err := json.NewDecoder(rec.Body).Decode(&holding); err != nil {
		t.Fatalf("decode holding: %v", err)
	}
	if holding.Balance != 100 {
		t.Fatalf("expected 100 units, got %d", holding.Balance)
	}

	var ownerBalance decimal.Decimal
	if err := pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE account = 'owner'`,
	).Scan(&ownerBalance); err != nil {
		t.Fatalf("query owner wallet: %v", err)
	}
	if !ownerBalance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected owner wallet 1000, got %s", ownerBalance)
	}

	var escrowBalance decimal.Decimal
	if err := pool.QueryRow(ctx,
		`SELECT balance FROM escrow_accounts WHERE asset_id = $1`, asset.ID,
	).Scan(&escrowBalance); err != nil {
		t.Fatalf("query escrow: %v", err)
	}
	if !escrowBalance.IsZero() {
		t.Fatalf("expected drained escrow, got %s", escrowBalance)
	}
}
