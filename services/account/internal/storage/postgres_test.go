package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"brokerage/services/testutil"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("RUN_DB_INTEGRATION") == "" {
		t.Skip("set RUN_DB_INTEGRATION=1 to run")
	}

	pool, err := testutil.SetupTestDB()
	if err != nil {
		t.Skipf("db connection failed: %v", err)
	}
	t.Cleanup(func() {
		_ = testutil.CleanupTestData(context.Background(), pool)
		pool.Close()
	})
	return pool
}

func TestSaveAtomicInsertsAndUpdates(t *testing.T) {
	pool := setupPool(t)
	store := New(pool)
	ctx := context.Background()

	asset := &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "TRY",
		TotalSize:  decimal.RequireFromString("100"),
		UsableSize: decimal.RequireFromString("100"),
	}
	if err := store.SaveAtomic(ctx, asset); err != nil {
		t.Fatalf("SaveAtomic insert: %v", err)
	}

	asset.TotalSize = decimal.RequireFromString("40")
	asset.UsableSize = decimal.RequireFromString("40")
	if err := store.SaveAtomic(ctx, asset); err != nil {
		t.Fatalf("SaveAtomic update: %v", err)
	}

	got, err := store.FindBySymbol(ctx, testutil.DemoCustomerID, "TRY")
	if err != nil {
		t.Fatalf("FindBySymbol: %v", err)
	}
	if !got.TotalSize.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("total size = %s, want 40", got.TotalSize)
	}
	if !got.UsableSize.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("usable size = %s, want 40", got.UsableSize)
	}
}

func TestSaveAtomicWritesAllRowsTogether(t *testing.T) {
	pool := setupPool(t)
	store := New(pool)
	ctx := context.Background()

	currency := &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "TRY",
		TotalSize:  decimal.RequireFromString("500"),
		UsableSize: decimal.RequireFromString("500"),
	}
	asset := &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "BTC",
		TotalSize:  decimal.RequireFromString("2"),
		UsableSize: decimal.RequireFromString("2"),
	}
	if err := store.SaveAtomic(ctx, currency, asset); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	assets, err := store.ListAssets(ctx, AssetFilter{CustomerID: testutil.DemoCustomerID})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
}

func TestFindBySymbolMissingRow(t *testing.T) {
	pool := setupPool(t)
	store := New(pool)

	_, err := store.FindBySymbol(context.Background(), testutil.DemoCustomerID, "DOGE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExistsBySymbol(t *testing.T) {
	pool := setupPool(t)
	store := New(pool)
	ctx := context.Background()

	exists, err := store.ExistsBySymbol(ctx, testutil.DemoCustomerID, "ETH")
	if err != nil {
		t.Fatalf("ExistsBySymbol: %v", err)
	}
	if exists {
		t.Fatal("expected no row yet")
	}

	if err := store.SaveAtomic(ctx, &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "ETH",
		TotalSize:  decimal.Zero,
		UsableSize: decimal.Zero,
	}); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	exists, err = store.ExistsBySymbol(ctx, testutil.DemoCustomerID, "ETH")
	if err != nil {
		t.Fatalf("ExistsBySymbol: %v", err)
	}
	if !exists {
		t.Fatal("expected row after save")
	}
}

func TestCreateAssetRejectsDuplicate(t *testing.T) {
	pool := setupPool(t)
	store := New(pool)
	ctx := context.Background()

	asset := &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "XAU",
		TotalSize:  decimal.RequireFromString("10"),
		UsableSize: decimal.RequireFromString("10"),
	}
	if err := store.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	dup := &Asset{
		CustomerID: testutil.DemoCustomerID,
		AssetName:  "XAU",
		TotalSize:  decimal.Zero,
		UsableSize: decimal.Zero,
	}
	if err := store.CreateAsset(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
