package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
)

func newProduct(t *testing.T, s *Store, stock int) *domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		Name:       "Teh Botol",
		SKU:        "MIN-001",
		CategoryID: "cat-1",
		Price:      5000,
		Cost:       3500,
		Stock:      stock,
		IsActive:   true,
	})
	require.NoError(t, err)
	return p
}

func TestSaleStockRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 10)

	sale, err := s.CreateSale(ctx, domain.Sale{Items: []domain.SaleItem{{ProductID: p.ID, Quantity: 3}}})
	require.NoError(t, err)

	got, _ := s.GetProduct(ctx, p.ID)
	assert.Equal(t, 7, got.Stock)

	_, err = s.DeleteSale(ctx, sale.ID)
	require.NoError(t, err)

	got, _ = s.GetProduct(ctx, p.ID)
	assert.Equal(t, 10, got.Stock)
}

func TestUpdateSaleAppliesDelta(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 10)

	sale, err := s.CreateSale(ctx, domain.Sale{Items: []domain.SaleItem{{ProductID: p.ID, Quantity: 3}}})
	require.NoError(t, err)

	sale.Items = []domain.SaleItem{{ProductID: p.ID, Quantity: 5}}
	updated, err := s.UpdateSale(ctx, *sale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	got, _ := s.GetProduct(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)

	_, err = s.UpdateSale(ctx, *sale)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestSaleRejectsNegativeStock(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 2)
	other, err := s.CreateProduct(ctx, domain.Product{Name: "Kopi", SKU: "MIN-002", Stock: 10})
	require.NoError(t, err)

	_, err = s.CreateSale(ctx, domain.Sale{Items: []domain.SaleItem{
		{ProductID: other.ID, Quantity: 1},
		{ProductID: p.ID, Quantity: 3},
	}})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	got, _ := s.GetProduct(ctx, other.ID)
	assert.Equal(t, 10, got.Stock)
}

func TestUpdateProductKeepsStockAndSKU(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 10)

	edit := *p
	edit.Stock = 99
	edit.SKU = "XXX-999"
	edit.Name = "Teh Botol Sosro"
	updated, err := s.UpdateProduct(ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, 10, updated.Stock)
	assert.Equal(t, "MIN-001", updated.SKU)
	assert.Equal(t, "Teh Botol Sosro", updated.Name)

	_, err = s.UpdateProduct(ctx, edit)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRoleNameUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateRole(ctx, domain.Role{Name: "Kasir"})
	require.NoError(t, err)
	_, err = s.CreateRole(ctx, domain.Role{Name: "kasir"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUserEmailImmutable(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.CreateUser(ctx, domain.User{Email: " Kasir@Toko.Local ", DisplayName: "Kasir"})
	require.NoError(t, err)
	assert.Equal(t, "kasir@toko.local", u.Email)

	edit := *u
	edit.Email = "other@toko.local"
	updated, err := s.UpdateUser(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "kasir@toko.local", updated.Email)

	byEmail, err := s.GetUserByEmail(ctx, "KASIR@toko.local")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.CreateUser(ctx, domain.User{Email: "kasir@toko.local"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRangeQueriesNewestFirstWithFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	for i, tt := range []struct {
		txType string
		op     string
	}{
		{domain.AgentTransfer, "u1"},
		{domain.AgentFuelTopup, "u1"},
		{domain.AgentTransfer, "u2"},
	} {
		_, err := s.CreateAgentTransaction(ctx, domain.AgentTransaction{
			Type:           tt.txType,
			ProfitCategory: domain.ProfitCategoryFor(tt.txType),
			OperatorID:     tt.op,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := s.ListAgentTransactions(ctx, domain.AgentTransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	transfers, err := s.ListAgentTransactions(ctx, domain.AgentTransactionFilter{Type: domain.AgentTransfer, OperatorID: "u1"})
	require.NoError(t, err)
	assert.Len(t, transfers, 1)

	windowed, err := s.ListAgentTransactions(ctx, domain.AgentTransactionFilter{
		TimeRange: domain.TimeRange{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)},
	})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, domain.ProfitFuel, windowed[0].ProfitCategory)
}

func TestAuditLogCap(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < store.AuditLogCap+20; i++ {
		require.NoError(t, s.CreateAuditLog(ctx, domain.AuditLog{Module: domain.ModuleSales, Action: domain.AuditCreate}))
	}

	logs, err := s.ListAuditLogs(ctx, domain.AuditLogFilter{Limit: 10000})
	require.NoError(t, err)
	assert.Len(t, logs, store.AuditLogCap)

	none, err := s.ListAuditLogs(ctx, domain.AuditLogFilter{Module: domain.ModuleUsers})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSavedAccountDedupesByNumber(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, created, err := s.UpsertSavedAccount(ctx, domain.SavedAccount{AccountName: "Budi", AccountNumber: "0123"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.UpsertSavedAccount(ctx, domain.SavedAccount{AccountName: "Budi Santoso", AccountNumber: " 0123 "})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	accounts, _ := s.ListSavedAccounts(ctx)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Budi Santoso", accounts[0].AccountName)
}

func TestNewSeeded(t *testing.T) {
	t.Setenv("SEED_OWNER_EMAIL", "boss@toko.local")
	t.Setenv("SEED_OWNER_PASSWORD", "rahasia-sekali")
	ctx := context.Background()

	s := NewSeeded()

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	owner, err := s.GetUserByEmail(ctx, "boss@toko.local")
	require.NoError(t, err)
	assert.True(t, owner.IsActive)

	_, err = s.GetCredential(ctx, "boss@toko.local")
	require.NoError(t, err)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range products {
		assert.NotEmpty(t, p.SKU)
		assert.False(t, seen[p.SKU], p.SKU)
		seen[p.SKU] = true
	}
	assert.True(t, seen["MIN-001"])
	assert.True(t, seen["MIN-003"])
}
