package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
	"github.com/bhargavryzer/Ownmali-sub000/internal/testutil"
)

func TestTokenRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewTokenRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("GetHolding reads zero for absent rows", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		assetID := testutil.InsertAsset(t, ctx, pool, "Harbor Tower", "HBT", 1_000_000)

		holding, err := repo.GetHolding(ctx, assetID, "alice")
		if err != nil {
			t.Fatalf("get holding: %v", err)
		}
		if holding.AssetID != assetID || holding.Account != "alice" {
			t.Fatalf("unexpected holding identity: %+v", holding)
		}
		if holding.Balance != 0 || holding.LockedUntil != nil {
			t.Fatalf("expected empty holding, got %+v", holding)
		}

		_, err = repo.GetHolding(ctx, "not-a-uuid", "alice")
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpsertHolding inserts then updates in place", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		assetID := testutil.InsertAsset(t, ctx, pool, "Harbor Tower", "HBT", 1_000_000)

		now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			holding, err := repo.GetHoldingForUpdate(txCtx, assetID, "alice")
			if err != nil {
				return err
			}
			holding.Balance += 100
			holding.UpdatedAt = now
			return repo.UpsertHolding(txCtx, holding)
		})
		if err != nil {
			t.Fatalf("first upsert: %v", err)
		}

		lockedUntil := now.Add(24 * time.Hour)
		err = repo.WithTx(ctx, func(txCtx context.Context) error {
			holding, err := repo.GetHoldingForUpdate(txCtx, assetID, "alice")
			if err != nil {
				return err
			}
			if holding.Balance != 100 {
				t.Fatalf("expected balance 100, got %d", holding.Balance)
			}
			holding.Balance = 60
			holding.LockedUntil = &lockedUntil
			holding.UpdatedAt = now.Add(time.Hour)
			return repo.UpsertHolding(txCtx, holding)
		})
		if err != nil {
			t.Fatalf("second upsert: %v", err)
		}

		holding, err := repo.GetHolding(ctx, assetID, "alice")
		if err != nil {
			t.Fatalf("get holding: %v", err)
		}
		if holding.Balance != 60 {
			t.Fatalf("expected balance 60, got %d", holding.Balance)
		}
		if holding.LockedUntil == nil || !holding.LockedUntil.Equal(lockedUntil) {
			t.Fatalf("unexpected lock: %v", holding.LockedUntil)
		}

		orphan := domain.Holding{
			AssetID:   "00000000-0000-0000-0000-000000000001",
			Account:   "alice",
			Balance:   10,
			UpdatedAt: now,
		}
		if err := repo.UpsertHolding(ctx, orphan); err != domain.ErrAssetNotFound {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("UpdateAsset persists supply and lifecycle changes", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		assetID := testutil.InsertAsset(t, ctx, pool, "Harbor Tower", "HBT", 1_000_000)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			asset, err := repo.GetAssetForUpdate(txCtx, assetID)
			if err != nil {
				return err
			}
			asset.TotalSupply = 500
			asset.Active = false
			asset.MetadataCID = "bafy-updated"
			asset.UpdatedAt = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
			return repo.UpdateAsset(txCtx, asset)
		})
		if err != nil {
			t.Fatalf("update asset: %v", err)
		}

		asset, err := repo.GetAsset(ctx, assetID)
		if err != nil {
			t.Fatalf("get asset: %v", err)
		}
		if asset.TotalSupply != 500 || asset.Active || asset.MetadataCID != "bafy-updated" {
			t.Fatalf("unexpected asset: %+v", asset)
		}

		missing := asset
		missing.ID = "00000000-0000-0000-0000-000000000001"
		if err := repo.UpdateAsset(ctx, missing); err != domain.ErrAssetNotFound {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("metadata updates accumulate approvals once per signer", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		assetID := testutil.InsertAsset(t, ctx, pool, "Harbor Tower", "HBT", 1_000_000)

		now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
		update := domain.MetadataUpdate{
			ID:        uuid.NewString(),
			AssetID:   assetID,
			NewCID:    "bafy-next",
			Threshold: 2,
			Approvals: 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.CreateMetadataUpdate(txCtx, update); err != nil {
				return err
			}
			return repo.AddMetadataApproval(txCtx, domain.MetadataApproval{
				UpdateID: update.ID,
				Signer:   "sig-1",
				At:       now,
			})
		})
		if err != nil {
			t.Fatalf("create update: %v", err)
		}

		err = repo.AddMetadataApproval(ctx, domain.MetadataApproval{
			UpdateID: update.ID,
			Signer:   "sig-1",
			At:       now.Add(time.Minute),
		})
		if err != domain.ErrAlreadyApproved {
			t.Fatalf("expected ErrAlreadyApproved, got %v", err)
		}

		err = repo.WithTx(ctx, func(txCtx context.Context) error {
			got, err := repo.GetMetadataUpdateForUpdate(txCtx, update.ID)
			if err != nil {
				return err
			}
			if got.NewCID != "bafy-next" || got.Threshold != 2 || got.Approvals != 1 || got.Executed {
				t.Fatalf("unexpected update: %+v", got)
			}
			got.Approvals = 2
			got.Executed = true
			got.UpdatedAt = now.Add(time.Hour)
			return repo.UpdateMetadataUpdate(txCtx, got)
		})
		if err != nil {
			t.Fatalf("execute update: %v", err)
		}

		err = repo.WithTx(ctx, func(txCtx context.Context) error {
			got, err := repo.GetMetadataUpdateForUpdate(txCtx, update.ID)
			if err != nil {
				return err
			}
			if !got.Executed || got.Approvals != 2 {
				t.Fatalf("expected executed update, got %+v", got)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		err = repo.WithTx(ctx, func(txCtx context.Context) error {
			_, err := repo.GetMetadataUpdateForUpdate(txCtx, "00000000-0000-0000-0000-000000000001")
			if err != domain.ErrUpdateNotFound {
				t.Fatalf("expected ErrUpdateNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		stray := domain.MetadataApproval{
			UpdateID: "00000000-0000-0000-0000-000000000001",
			Signer:   "sig-9",
			At:       now,
		}
		if err := repo.AddMetadataApproval(ctx, stray); err != domain.ErrUpdateNotFound {
			t.Fatalf("expected ErrUpdateNotFound, got %v", err)
		}
	})

	t.Run("CreateMetadataUpdate rejects unknown assets", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		now := time.Now().UTC()
		update := domain.MetadataUpdate{
			ID:        uuid.NewString(),
			AssetID:   "00000000-0000-0000-0000-000000000001",
			NewCID:    "bafy-next",
			Threshold: 2,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.CreateMetadataUpdate(ctx, update); err != domain.ErrAssetNotFound {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}
	})
}
