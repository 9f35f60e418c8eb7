package memory

import (
	"cmp"
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/sku"
	"tokoagen/backend/internal/store"
	"tokoagen/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	roles         map[string]domain.Role
	users         map[string]domain.User
	credentials   map[string]domain.Credential
	categories    map[string]domain.Category
	products      map[string]domain.Product
	sales         map[string]domain.Sale
	agentTxs      map[string]domain.AgentTransaction
	savedAccounts map[string]domain.SavedAccount
	auditLogs     []domain.AuditLog
}

func New() *Store {
	return &Store{
		roles:         make(map[string]domain.Role),
		users:         make(map[string]domain.User),
		credentials:   make(map[string]domain.Credential),
		categories:    make(map[string]domain.Category),
		products:      make(map[string]domain.Product),
		sales:         make(map[string]domain.Sale),
		agentTxs:      make(map[string]domain.AgentTransaction),
		savedAccounts: make(map[string]domain.SavedAccount),
		auditLogs:     make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded builds a dev/demo store with the two system roles, an owner
// account and a small catalog. The owner credentials come from
// SEED_OWNER_EMAIL and SEED_OWNER_PASSWORD; unset values fall back to dev
// defaults with a warning. Production runs on Postgres when DATABASE_URL is
// set and never sees these.
func NewSeeded() *Store {
	s := New()
	now := store.Now()

	ownerRole := domain.Role{
		ID:          "role-owner",
		Name:        "Owner",
		Description: "Pemilik toko, akses penuh",
		Permissions: permissionStrings(access.AllPermissions()),
		IsSystem:    true,
	}
	cashierRole := domain.Role{
		ID:          "role-kasir",
		Name:        "Kasir",
		Description: "Kasir dan operator BRILink",
		Permissions: []string{"brilink", "dashboard", "products", "sales"},
		IsSystem:    true,
	}
	for _, r := range []domain.Role{ownerRole, cashierRole} {
		r.Version, r.CreatedAt, r.UpdatedAt = 1, now, now
		s.roles[r.ID] = r
	}

	email := envOr("SEED_OWNER_EMAIL", "owner@toko.local")
	password := envOr("SEED_OWNER_PASSWORD", "owner123")
	if os.Getenv("SEED_OWNER_EMAIL") == "" || os.Getenv("SEED_OWNER_PASSWORD") == "" {
		slog.Warn("memory store: using default dev credentials, set SEED_OWNER_EMAIL and SEED_OWNER_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic("memory store: hash seed password: " + err.Error())
	}
	email = normalizeEmail(email)
	s.credentials[email] = domain.Credential{Email: email, PasswordHash: string(hash), CreatedAt: now, UpdatedAt: now}
	s.users["user-owner"] = domain.User{
		ID:          "user-owner",
		Email:       email,
		DisplayName: "Pemilik Toko",
		RoleID:      ownerRole.ID,
		IsActive:    true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	categories := []domain.Category{
		{ID: "cat-minuman", Name: "Minuman", IsActive: true},
		{ID: "cat-makanan", Name: "Makanan Ringan", IsActive: true},
		{ID: "cat-sembako", Name: "Sembako", IsActive: true},
		{ID: "cat-atk", Name: "Alat Tulis", IsActive: true},
	}
	for _, c := range categories {
		c.Version, c.CreatedAt, c.UpdatedAt = 1, now, now
		s.categories[c.ID] = c
	}

	seedProducts := []struct {
		name       string
		categoryID string
		price      int64
		cost       int64
		stock      int
		unit       string
	}{
		{"Air Mineral 600ml", "cat-minuman", 4000, 2800, 48, "botol"},
		{"Teh Botol", "cat-minuman", 5000, 3700, 24, "botol"},
		{"Kopi Sachet", "cat-minuman", 2000, 1400, 60, "sachet"},
		{"Keripik Singkong", "cat-makanan", 12000, 8500, 15, "bungkus"},
		{"Beras 5kg", "cat-sembako", 72000, 65000, 8, "karung"},
		{"Gula 1kg", "cat-sembako", 17500, 15500, 12, "kg"},
		{"Pulpen Hitam", "cat-atk", 3500, 2000, 30, "pcs"},
	}
	codes := make([]string, 0, len(seedProducts))
	for i, p := range seedProducts {
		code := sku.Generate(p.categoryID, categories, codes)
		codes = append(codes, code)
		id := xid.New("prd")
		s.products[id] = domain.Product{
			ID:         id,
			Name:       p.name,
			SKU:        code,
			CategoryID: p.categoryID,
			Price:      p.price,
			Cost:       p.cost,
			Stock:      p.stock,
			MinStock:   5 + i%3,
			Unit:       p.unit,
			IsActive:   true,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func permissionStrings(perms []access.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	slices.Sort(out)
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Roles

func (s *Store) ListRoles(_ context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]domain.Role, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, cloneRole(r))
	}
	slices.SortFunc(roles, func(a, b domain.Role) int { return cmpFold(a.Name, b.Name) })
	return roles, nil
}

func (s *Store) GetRole(_ context.Context, id string) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneRole(role)
	return &out, nil
}

func (s *Store) CreateRole(_ context.Context, role domain.Role) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(role.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return nil, store.ErrDuplicate
		}
	}
	if role.ID == "" {
		role.ID = xid.New("role")
	}
	if _, exists := s.roles[role.ID]; exists {
		return nil, store.ErrDuplicate
	}
	now := store.Now()
	role.Version, role.CreatedAt, role.UpdatedAt = 1, now, now
	role = cloneRole(role)
	s.roles[role.ID] = role

	out := cloneRole(role)
	return &out, nil
}

func (s *Store) UpdateRole(_ context.Context, role domain.Role) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.roles[role.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != role.Version {
		return nil, store.ErrConflict
	}
	for id, existing := range s.roles {
		if id != role.ID && strings.EqualFold(existing.Name, role.Name) {
			return nil, store.ErrDuplicate
		}
	}
	role.CreatedAt = current.CreatedAt
	role.UpdatedAt = store.Now()
	role.Version = current.Version + 1
	role = cloneRole(role)
	s.roles[role.ID] = role

	out := cloneRole(role)
	return &out, nil
}

func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

// Users and credentials

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.User) int { return cmp.Compare(a.Email, b.Email) })
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if user.Email == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	now := store.Now()
	user.Version, user.CreatedAt, user.UpdatedAt = 1, now, now
	s.users[user.ID] = user

	created := user
	return &created, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != user.Version {
		return nil, store.ErrConflict
	}
	user.Email = current.Email
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = store.Now()
	user.Version = current.Version + 1
	s.users[user.ID] = user

	updated := user
	return &updated, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetCredential(_ context.Context, email string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[normalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cred, nil
}

func (s *Store) SaveCredential(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.Email = normalizeEmail(cred.Email)
	if cred.Email == "" || cred.PasswordHash == "" {
		return store.ErrInvalidInput
	}
	now := store.Now()
	if existing, ok := s.credentials[cred.Email]; ok {
		cred.CreatedAt = existing.CreatedAt
	} else {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	s.credentials[cred.Email] = cred
	return nil
}

func (s *Store) DeleteCredential(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if _, ok := s.credentials[email]; !ok {
		return store.ErrNotFound
	}
	delete(s.credentials, email)
	return nil
}

// Categories

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int { return cmpFold(a.Name, b.Name) })
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &category, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	now := store.Now()
	category.Version, category.CreatedAt, category.UpdatedAt = 1, now, now
	s.categories[category.ID] = category

	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != category.Version {
		return nil, store.ErrConflict
	}
	category.CreatedAt = current.CreatedAt
	category.UpdatedAt = store.Now()
	category.Version = current.Version + 1
	s.categories[category.ID] = category

	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// Products

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int { return cmpFold(a.Name, b.Name) })
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || strings.TrimSpace(product.Name) == "" || product.Price < 0 || product.Cost < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrDuplicate
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := store.Now()
	product.Version, product.CreatedAt, product.UpdatedAt = 1, now, now
	s.products[product.ID] = product

	created := product
	return &created, nil
}

// UpdateProduct never touches stock or SKU; those move through sales only.
func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != product.Version {
		return nil, store.ErrConflict
	}
	if product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}
	product.SKU = current.SKU
	product.Stock = current.Stock
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = store.Now()
	product.Version = current.Version + 1
	s.products[product.ID] = product

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Sales

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !filter.Includes(sale.CreatedAt) {
			continue
		}
		if filter.CashierID != "" && sale.CashierID != filter.CashierID {
			continue
		}
		if filter.PaymentMethod != "" && sale.PaymentMethod != filter.PaymentMethod {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if err := s.applyStockLocked(store.StockDeltas(nil, sale.Items)); err != nil {
		return nil, err
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := store.Now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
	sale.Version = 1
	sale = cloneSale(sale)
	s.sales[sale.ID] = sale

	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sales[sale.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != sale.Version {
		return nil, store.ErrConflict
	}
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if err := s.applyStockLocked(store.StockDeltas(current.Items, sale.Items)); err != nil {
		return nil, err
	}
	sale.CreatedAt = current.CreatedAt
	sale.CashierID = current.CashierID
	sale.CashierName = current.CashierName
	sale.UpdatedAt = store.Now()
	sale.Version = current.Version + 1
	sale = cloneSale(sale)
	s.sales[sale.ID] = sale

	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.applyStockLocked(store.StockDeltas(current.Items, nil)); err != nil {
		return nil, err
	}
	delete(s.sales, id)

	out := cloneSale(current)
	return &out, nil
}

// applyStockLocked validates every delta before applying any, so a failed
// sale write leaves stock untouched. Restocking a product that no longer
// exists is skipped.
func (s *Store) applyStockLocked(deltas []domain.StockDelta) error {
	for _, d := range deltas {
		product, ok := s.products[d.ProductID]
		if !ok {
			if d.Delta < 0 {
				return store.ErrNotFound
			}
			continue
		}
		if product.Stock+d.Delta < 0 {
			return store.ErrInsufficientStock
		}
	}
	now := store.Now()
	for _, d := range deltas {
		product, ok := s.products[d.ProductID]
		if !ok {
			continue
		}
		product.Stock += d.Delta
		product.UpdatedAt = now
		s.products[d.ProductID] = product
	}
	return nil
}

// Agent-banking transactions

func (s *Store) ListAgentTransactions(_ context.Context, filter domain.AgentTransactionFilter) ([]domain.AgentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.AgentTransaction, 0, len(s.agentTxs))
	for _, tx := range s.agentTxs {
		if !filter.Includes(tx.CreatedAt) {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.ProfitCategory != "" && tx.ProfitCategory != filter.ProfitCategory {
			continue
		}
		if filter.OperatorID != "" && tx.OperatorID != filter.OperatorID {
			continue
		}
		txs = append(txs, cloneAgentTransaction(tx))
	}
	slices.SortFunc(txs, func(a, b domain.AgentTransaction) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return txs, nil
}

func (s *Store) GetAgentTransaction(_ context.Context, id string) (*domain.AgentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.agentTxs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneAgentTransaction(tx)
	return &out, nil
}

func (s *Store) CreateAgentTransaction(_ context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.IsAgentTransactionType(tx.Type) {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New("agt")
	}
	now := store.Now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	tx.Version = 1
	tx = cloneAgentTransaction(tx)
	s.agentTxs[tx.ID] = tx

	out := cloneAgentTransaction(tx)
	return &out, nil
}

func (s *Store) UpdateAgentTransaction(_ context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.agentTxs[tx.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if current.Version != tx.Version {
		return nil, store.ErrConflict
	}
	tx.CreatedAt = current.CreatedAt
	tx.OperatorID = current.OperatorID
	tx.OperatorName = current.OperatorName
	tx.UpdatedAt = store.Now()
	tx.Version = current.Version + 1
	tx = cloneAgentTransaction(tx)
	s.agentTxs[tx.ID] = tx

	out := cloneAgentTransaction(tx)
	return &out, nil
}

func (s *Store) DeleteAgentTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agentTxs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.agentTxs, id)
	return nil
}

// Saved accounts

func (s *Store) ListSavedAccounts(_ context.Context) ([]domain.SavedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.SavedAccount, 0, len(s.savedAccounts))
	for _, a := range s.savedAccounts {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b domain.SavedAccount) int { return cmpFold(a.AccountName, b.AccountName) })
	return accounts, nil
}

// UpsertSavedAccount reports true when a new account was created.
func (s *Store) UpsertSavedAccount(_ context.Context, account domain.SavedAccount) (*domain.SavedAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.AccountNumber = strings.TrimSpace(account.AccountNumber)
	account.AccountName = strings.TrimSpace(account.AccountName)
	if account.AccountNumber == "" || account.AccountName == "" {
		return nil, false, store.ErrInvalidInput
	}
	now := store.Now()
	for id, existing := range s.savedAccounts {
		if existing.AccountNumber != account.AccountNumber {
			continue
		}
		existing.AccountName = account.AccountName
		existing.UpdatedAt = now
		s.savedAccounts[id] = existing
		out := existing
		return &out, false, nil
	}

	if account.ID == "" {
		account.ID = xid.New("acct")
	}
	account.CreatedAt, account.UpdatedAt = now, now
	s.savedAccounts[account.ID] = account
	out := account
	return &out, true, nil
}

func (s *Store) DeleteSavedAccount(_ context.Context, id string) (*domain.SavedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.savedAccounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.savedAccounts, id)
	return &account, nil
}

// Audit log

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = store.Now()
	}
	s.auditLogs = append(s.auditLogs, cloneAuditLog(entry))
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := store.AuditLimit(filter.Limit)
	logs := make([]domain.AuditLog, 0, min(limit, len(s.auditLogs)))
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !filter.Includes(entry.CreatedAt) {
			continue
		}
		if filter.Module != "" && entry.Module != filter.Module {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		logs = append(logs, cloneAuditLog(entry))
	}
	slices.SortStableFunc(logs, func(a, b domain.AuditLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func cmpFold(a string, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cloneRole(src domain.Role) domain.Role {
	dst := src
	dst.Permissions = append([]string(nil), src.Permissions...)
	return dst
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = append([]domain.SaleItem(nil), src.Items...)
	return dst
}

func cloneAgentTransaction(src domain.AgentTransaction) domain.AgentTransaction {
	dst := src
	if src.BalanceAfter != nil {
		balance := *src.BalanceAfter
		dst.BalanceAfter = &balance
	}
	return dst
}

func cloneAuditLog(src domain.AuditLog) domain.AuditLog {
	dst := src
	if src.Before != nil {
		dst.Before = append([]byte(nil), src.Before...)
	}
	if src.After != nil {
		dst.After = append([]byte(nil), src.After...)
	}
	return dst
}
