package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"tokoagen/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("record changed since it was loaded")
	ErrDuplicate         = errors.New("duplicate record")
)

// AuditLogCap bounds every audit-log range query.
const AuditLogCap = 500

// Repository is the document-store boundary. Range queries return newest
// first. Updates compare the Version carried by the argument with the stored
// one and fail with ErrConflict on mismatch; successful writes bump it.
type Repository interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
	GetRole(ctx context.Context, id string) (*domain.Role, error)
	CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error)
	UpdateRole(ctx context.Context, role domain.Role) (*domain.Role, error)
	DeleteRole(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	GetCredential(ctx context.Context, email string) (*domain.Credential, error)
	SaveCredential(ctx context.Context, cred domain.Credential) error
	DeleteCredential(ctx context.Context, email string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// Sale writes adjust product stock in the same atomic step: create takes
	// the sold quantities, update applies the difference between the stored
	// and the new lines, delete gives everything back.
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) (*domain.Sale, error)

	ListAgentTransactions(ctx context.Context, filter domain.AgentTransactionFilter) ([]domain.AgentTransaction, error)
	GetAgentTransaction(ctx context.Context, id string) (*domain.AgentTransaction, error)
	CreateAgentTransaction(ctx context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error)
	UpdateAgentTransaction(ctx context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error)
	DeleteAgentTransaction(ctx context.Context, id string) error

	ListSavedAccounts(ctx context.Context) ([]domain.SavedAccount, error)
	// UpsertSavedAccount dedupes by account number.
	UpsertSavedAccount(ctx context.Context, account domain.SavedAccount) (*domain.SavedAccount, bool, error)
	DeleteSavedAccount(ctx context.Context, id string) (*domain.SavedAccount, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error)
}

// Now is the store clock: UTC truncated to the millisecond so that window
// ends at .999 are exact.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// StockDeltas returns the signed stock change per product when a sale's lines
// go from before to after. Deleting a sale is after == nil.
func StockDeltas(before []domain.SaleItem, after []domain.SaleItem) []domain.StockDelta {
	net := make(map[string]int)
	for _, item := range before {
		net[item.ProductID] += item.Quantity
	}
	for _, item := range after {
		net[item.ProductID] -= item.Quantity
	}

	deltas := make([]domain.StockDelta, 0, len(net))
	for productID, delta := range net {
		if delta == 0 {
			continue
		}
		deltas = append(deltas, domain.StockDelta{ProductID: productID, Delta: delta})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ProductID < deltas[j].ProductID })
	return deltas
}

// AuditLimit clamps a requested audit page size to (0, AuditLogCap].
func AuditLimit(limit int) int {
	if limit < 1 || limit > AuditLogCap {
		return AuditLogCap
	}
	return limit
}
