package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
)

// newIntegrationStore connects to TOKOAGEN_TEST_DATABASE_URL when set, or
// starts a throwaway postgres container when TOKOAGEN_TEST_CONTAINERS=1.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	databaseURL := os.Getenv("TOKOAGEN_TEST_DATABASE_URL")
	if databaseURL == "" {
		if os.Getenv("TOKOAGEN_TEST_CONTAINERS") != "1" {
			t.Skip("set TOKOAGEN_TEST_DATABASE_URL or TOKOAGEN_TEST_CONTAINERS=1 to run postgres integration tests")
		}
		databaseURL = startPostgres(t)
	}

	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))
	return s
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "toko",
				"POSTGRES_PASSWORD": "toko",
				"POSTGRES_DB":       "toko",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://toko:toko@%s:%s/toko?sslmode=disable", host, port.Port())
}

func TestSaleRestocksOnDelete(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	product, err := s.CreateProduct(ctx, domain.Product{
		Name:     fmt.Sprintf("Produk IT %d", stamp),
		SKU:      fmt.Sprintf("ITX-%d", stamp),
		Price:    5000,
		Cost:     3000,
		Stock:    10,
		IsActive: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DeleteProduct(ctx, product.ID)
	})

	sale, err := s.CreateSale(ctx, domain.Sale{
		Items:         []domain.SaleItem{{ProductID: product.ID, ProductName: product.Name, Quantity: 3, UnitPrice: 5000, Subtotal: 15000}},
		Subtotal:      15000,
		Total:         15000,
		PaymentMethod: domain.PaymentCash,
		AmountPaid:    20000,
		Change:        5000,
	})
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	loaded, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 3, loaded.Items[0].Quantity)

	stale := *loaded
	stale.Items = append([]domain.SaleItem(nil), loaded.Items...)
	loaded.Items[0].Quantity = 5
	_, err = s.UpdateSale(ctx, *loaded)
	require.NoError(t, err)

	_, err = s.UpdateSale(ctx, stale)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, _ = s.GetProduct(ctx, product.ID)
	assert.Equal(t, 5, got.Stock)

	_, err = s.DeleteSale(ctx, sale.ID)
	require.NoError(t, err)

	got, _ = s.GetProduct(ctx, product.ID)
	assert.Equal(t, 10, got.Stock)
}

func TestSaleBeyondStockIsRejected(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, domain.Product{
		Name:  fmt.Sprintf("Produk Habis %d", time.Now().UnixNano()),
		SKU:   fmt.Sprintf("HBS-%d", time.Now().UnixNano()),
		Stock: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DeleteProduct(ctx, product.ID)
	})

	_, err = s.CreateSale(ctx, domain.Sale{
		Items:         []domain.SaleItem{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod: domain.PaymentCash,
	})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	got, _ := s.GetProduct(ctx, product.ID)
	assert.Equal(t, 1, got.Stock)
}

func TestSavedAccountUpsertAndAudit(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	number := fmt.Sprintf("99%d", time.Now().UnixNano())
	first, created, err := s.UpsertSavedAccount(ctx, domain.SavedAccount{AccountName: "Budi", AccountNumber: number})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.UpsertSavedAccount(ctx, domain.SavedAccount{AccountName: "Budi Santoso", AccountNumber: number})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Budi Santoso", second.AccountName)

	require.NoError(t, s.CreateAuditLog(ctx, domain.AuditLog{
		Module:     domain.ModuleSavedAccount,
		Action:     domain.AuditCreate,
		TargetID:   first.ID,
		TargetName: first.AccountName,
		After:      []byte(`{"account_number":"` + number + `"}`),
	}))
	logs, err := s.ListAuditLogs(ctx, domain.AuditLogFilter{Module: domain.ModuleSavedAccount, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Nil(t, logs[0].Before)
	assert.NotEmpty(t, logs[0].After)

	_, err = s.DeleteSavedAccount(ctx, first.ID)
	require.NoError(t, err)
	_, err = s.DeleteSavedAccount(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
