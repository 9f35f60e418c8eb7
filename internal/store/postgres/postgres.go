package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
	"tokoagen/backend/internal/xid"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Roles

const roleColumns = `id, name, description, permissions, is_system, version, created_at, updated_at`

func scanRole(row rowScanner) (*domain.Role, error) {
	var role domain.Role
	var perms []byte
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &perms, &role.IsSystem, &role.Version, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perms, &role.Permissions); err != nil {
		return nil, err
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	role.CreatedAt = role.CreatedAt.UTC()
	role.UpdatedAt = role.UpdatedAt.UTC()
	return &role, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.Role, 0, 8)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := scanRole(s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return role, nil
}

func (s *Store) CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error) {
	if strings.TrimSpace(role.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if role.ID == "" {
		role.ID = xid.New("role")
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return nil, err
	}
	now := store.Now()
	role.Version, role.CreatedAt, role.UpdatedAt = 1, now, now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, permissions, is_system, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, role.ID, role.Name, role.Description, string(perms), role.IsSystem, role.Version, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &role, nil
}

func (s *Store) UpdateRole(ctx context.Context, role domain.Role) (*domain.Role, error) {
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return nil, err
	}
	updated, err := scanRole(s.db.QueryRowContext(ctx, `
		UPDATE roles
		SET name = $3, description = $4, permissions = $5, is_system = $6, version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2
		RETURNING `+roleColumns,
		role.ID, role.Version, role.Name, role.Description, string(perms), role.IsSystem, store.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrConflict(ctx, "roles", role.ID)
		}
		return nil, duplicate(err)
	}
	return updated, nil
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "roles", id)
}

// Users and credentials

const userColumns = `id, email, display_name, role_id, is_active, version, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.RoleID, &user.IsActive, &user.Version, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = normalizeEmail(user.Email)
	if user.Email == "" {
		return nil, store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	now := store.Now()
	user.Version, user.CreatedAt, user.UpdatedAt = 1, now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role_id, is_active, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, user.ID, user.Email, user.DisplayName, user.RoleID, user.IsActive, user.Version, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &user, nil
}

// UpdateUser leaves email untouched.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	updated, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name = $3, role_id = $4, is_active = $5, version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $2
		RETURNING `+userColumns,
		user.ID, user.Version, user.DisplayName, user.RoleID, user.IsActive, store.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrConflict(ctx, "users", user.ID)
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id)
}

func (s *Store) GetCredential(ctx context.Context, email string) (*domain.Credential, error) {
	var cred domain.Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT email, password_hash, created_at, updated_at
		FROM credentials
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&cred.Email, &cred.PasswordHash, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &cred, nil
}

func (s *Store) SaveCredential(ctx context.Context, cred domain.Credential) error {
	cred.Email = normalizeEmail(cred.Email)
	if cred.Email == "" || cred.PasswordHash == "" {
		return store.ErrInvalidInput
	}
	now := store.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (email, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$3)
		ON CONFLICT (email)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`, cred.Email, cred.PasswordHash, now)
	return err
}

func (s *Store) DeleteCredential(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// Categories

const categoryColumns = `id, name, description, is_active, version, created_at, updated_at`

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	now := store.Now()
	category.Version, category.CreatedAt, category.UpdatedAt = 1, now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, is_active, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, category.ID, category.Name, category.Description, category.IsActive, category.Version, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	updated, err := scanCategory(s.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $3, description = $4, is_active = $5, version = version + 1, updated_at = $6
		WHERE id = $1 AND version = $2
		RETURNING `+categoryColumns,
		category.ID, category.Version, category.Name, category.Description, category.IsActive, store.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrConflict(ctx, "categories", category.ID)
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "categories", id)
}

// Products

const productColumns = `id, name, sku, category_id, price, cost, stock, min_stock, unit, is_active, version, created_at, updated_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryID, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.Unit, &p.IsActive, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || strings.TrimSpace(product.Name) == "" || product.Price < 0 || product.Cost < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	now := store.Now()
	product.Version, product.CreatedAt, product.UpdatedAt = 1, now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, category_id, price, cost, stock, min_stock, unit, is_active, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, product.ID, product.Name, product.SKU, product.CategoryID, product.Price, product.Cost, product.Stock,
		product.MinStock, product.Unit, product.IsActive, product.Version, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &product, nil
}

// UpdateProduct never touches stock or SKU; those move through sales only.
func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Price < 0 || product.Cost < 0 {
		return nil, store.ErrInvalidInput
	}
	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $3, category_id = $4, price = $5, cost = $6, min_stock = $7, unit = $8, is_active = $9,
			version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $2
		RETURNING `+productColumns,
		product.ID, product.Version, product.Name, product.CategoryID, product.Price, product.Cost,
		product.MinStock, product.Unit, product.IsActive, store.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrConflict(ctx, "products", product.ID)
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id)
}

// helpers

// deleteByID is only called with package-level table names.
func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// missingOrConflict explains a versioned UPDATE that matched no row.
func (s *Store) missingOrConflict(ctx context.Context, table string, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func affectedOrNotFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// timeRange adds the optional created_at bounds of r to q.
func timeRange(q sq.SelectBuilder, r domain.TimeRange) sq.SelectBuilder {
	if !r.From.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": r.From})
	}
	if !r.To.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": r.To})
	}
	return q
}

// equalIfSet adds column = value only for non-empty values.
func equalIfSet(q sq.SelectBuilder, column string, value string) sq.SelectBuilder {
	if value == "" {
		return q
	}
	return q.Where(sq.Eq{column: value})
}
