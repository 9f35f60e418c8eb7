package postgres

import (
	"context"
	"database/sql"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
	"tokoagen/backend/internal/xid"
)

const saleColumns = `id, subtotal, discount, total, payment_method, amount_paid, change_amount, cashier_id, cashier_name, version, created_at, updated_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	if err := row.Scan(&sale.ID, &sale.Subtotal, &sale.Discount, &sale.Total, &sale.PaymentMethod, &sale.AmountPaid,
		&sale.Change, &sale.CashierID, &sale.CashierName, &sale.Version, &sale.CreatedAt, &sale.UpdatedAt); err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadItems fills Items for every sale in one round trip.
func loadItems(ctx context.Context, q queryer, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	index := make(map[string]int, len(sales))
	ids := make([]string, 0, len(sales))
	for i := range sales {
		index[sales[i].ID] = i
		ids = append(ids, sales[i].ID)
		sales[i].Items = []domain.SaleItem{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT sale_id, product_id, product_name, quantity, unit_price, unit_cost, subtotal
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.UnitCost, &item.Subtotal); err != nil {
			return err
		}
		i := index[saleID]
		sales[i].Items = append(sales[i].Items, item)
	}
	return rows.Err()
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	q := psql.Select(saleColumns).From("sales")
	q = timeRange(q, filter.TimeRange)
	q = equalIfSet(q, "cashier_id", filter.CashierID)
	q = equalIfSet(q, "payment_method", filter.PaymentMethod)
	query, args, err := q.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := loadItems(ctx, s.db, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	out := []domain.Sale{*sale}
	if err := loadItems(ctx, s.db, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyStock(ctx, tx, store.StockDeltas(nil, sale.Items)); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, subtotal, discount, total, payment_method, amount_paid, change_amount, cashier_id, cashier_name, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.Subtotal, sale.Discount, sale.Total, sale.PaymentMethod, sale.AmountPaid, sale.Change,
		sale.CashierID, sale.CashierName, sale.Version, sale.CreatedAt, sale.UpdatedAt); err != nil {
		return nil, duplicate(err)
	}
	if err := insertItems(ctx, tx, sale.ID, sale.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, sale.ID))
	if err != nil {
		return nil, notFound(err)
	}
	if current.Version != sale.Version {
		return nil, store.ErrConflict
	}
	stored := []domain.Sale{*current}
	if err := loadItems(ctx, tx, stored); err != nil {
		return nil, err
	}
	if err := applyStock(ctx, tx, store.StockDeltas(stored[0].Items, sale.Items)); err != nil {
		return nil, err
	}

	sale.CreatedAt = current.CreatedAt
	sale.CashierID = current.CashierID
	sale.CashierName = current.CashierName
	sale.UpdatedAt = store.Now()
	sale.Version = current.Version + 1
	if _, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET subtotal = $2, discount = $3, total = $4, payment_method = $5, amount_paid = $6, change_amount = $7,
			version = $8, updated_at = $9
		WHERE id = $1
	`, sale.ID, sale.Subtotal, sale.Discount, sale.Total, sale.PaymentMethod, sale.AmountPaid, sale.Change,
		sale.Version, sale.UpdatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID); err != nil {
		return nil, err
	}
	if err := insertItems(ctx, tx, sale.ID, sale.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	stored := []domain.Sale{*current}
	if err := loadItems(ctx, tx, stored); err != nil {
		return nil, err
	}
	if err := applyStock(ctx, tx, store.StockDeltas(stored[0].Items, nil)); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &stored[0], nil
}

func insertItems(ctx context.Context, tx *sql.Tx, saleID string, items []domain.SaleItem) error {
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, line_no, product_id, product_name, quantity, unit_price, unit_cost, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, saleID, i+1, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.UnitCost, item.Subtotal); err != nil {
			return err
		}
	}
	return nil
}

// applyStock moves stock with a conditional UPDATE per product so that two
// sales racing for the last unit cannot both win. Deltas arrive sorted by
// product id, which keeps row-lock order stable across transactions.
func applyStock(ctx context.Context, tx *sql.Tx, deltas []domain.StockDelta) error {
	now := store.Now()
	for _, d := range deltas {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = $3
			WHERE id = $1 AND stock + $2 >= 0
		`, d.ProductID, d.Delta, now)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			continue
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, d.ProductID).Scan(&exists); err != nil {
			return err
		}
		switch {
		case exists:
			return store.ErrInsufficientStock
		case d.Delta < 0:
			return store.ErrNotFound
		}
		// restocking a deleted product is a no-op
	}
	return nil
}
