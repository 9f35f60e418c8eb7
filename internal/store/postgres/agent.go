package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
	"tokoagen/backend/internal/xid"
)

const agentColumns = `id, type, profit_category, account_name, account_number, phone, amount, admin_fee, profit, balance_after,
	customer_name, customer_phone, note, operator_id, operator_name, version, created_at, updated_at`

func scanAgentTransaction(row rowScanner) (*domain.AgentTransaction, error) {
	var tx domain.AgentTransaction
	var balance sql.NullInt64
	if err := row.Scan(&tx.ID, &tx.Type, &tx.ProfitCategory, &tx.AccountName, &tx.AccountNumber, &tx.Phone, &tx.Amount,
		&tx.AdminFee, &tx.Profit, &balance, &tx.CustomerName, &tx.CustomerPhone, &tx.Note, &tx.OperatorID, &tx.OperatorName,
		&tx.Version, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	if balance.Valid {
		v := balance.Int64
		tx.BalanceAfter = &v
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	return &tx, nil
}

func nullableInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (s *Store) ListAgentTransactions(ctx context.Context, filter domain.AgentTransactionFilter) ([]domain.AgentTransaction, error) {
	q := psql.Select(agentColumns).From("agent_transactions")
	q = timeRange(q, filter.TimeRange)
	q = equalIfSet(q, "type", filter.Type)
	q = equalIfSet(q, "profit_category", filter.ProfitCategory)
	q = equalIfSet(q, "operator_id", filter.OperatorID)
	query, args, err := q.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.AgentTransaction, 0, 64)
	for rows.Next() {
		tx, err := scanAgentTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) GetAgentTransaction(ctx context.Context, id string) (*domain.AgentTransaction, error) {
	tx, err := scanAgentTransaction(s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agent_transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

func (s *Store) CreateAgentTransaction(ctx context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_transactions (
			id, type, profit_category, account_name, account_number, phone, amount, admin_fee, profit, balance_after,
			customer_name, customer_phone, note, operator_id, operator_name, version, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, tx.ID, tx.Type, tx.ProfitCategory, tx.AccountName, tx.AccountNumber, tx.Phone, tx.Amount, tx.AdminFee, tx.Profit,
		nullableInt(tx.BalanceAfter), tx.CustomerName, tx.CustomerPhone, tx.Note, tx.OperatorID, tx.OperatorName,
		tx.Version, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return nil, duplicate(err)
	}
	return &tx, nil
}

func (s *Store) UpdateAgentTransaction(ctx context.Context, tx domain.AgentTransaction) (*domain.AgentTransaction, error) {
	if !domain.IsAgentTransactionType(tx.Type) {
		return nil, store.ErrInvalidInput
	}
	updated, err := scanAgentTransaction(s.db.QueryRowContext(ctx, `
		UPDATE agent_transactions
		SET type = $3, profit_category = $4, account_name = $5, account_number = $6, phone = $7, amount = $8,
			admin_fee = $9, profit = $10, balance_after = $11, customer_name = $12, customer_phone = $13, note = $14,
			version = version + 1, updated_at = $15
		WHERE id = $1 AND version = $2
		RETURNING `+agentColumns,
		tx.ID, tx.Version, tx.Type, tx.ProfitCategory, tx.AccountName, tx.AccountNumber, tx.Phone, tx.Amount,
		tx.AdminFee, tx.Profit, nullableInt(tx.BalanceAfter), tx.CustomerName, tx.CustomerPhone, tx.Note, store.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrConflict(ctx, "agent_transactions", tx.ID)
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteAgentTransaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "agent_transactions", id)
}

// Saved accounts

func scanSavedAccount(row rowScanner) (*domain.SavedAccount, error) {
	var a domain.SavedAccount
	if err := row.Scan(&a.ID, &a.AccountName, &a.AccountNumber, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (s *Store) ListSavedAccounts(ctx context.Context) ([]domain.SavedAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_name, account_number, created_at, updated_at
		FROM saved_accounts
		ORDER BY lower(account_name)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.SavedAccount, 0, 32)
	for rows.Next() {
		a, err := scanSavedAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpsertSavedAccount reports true when a new account was created.
func (s *Store) UpsertSavedAccount(ctx context.Context, account domain.SavedAccount) (*domain.SavedAccount, bool, error) {
	account.AccountNumber = strings.TrimSpace(account.AccountNumber)
	account.AccountName = strings.TrimSpace(account.AccountName)
	if account.AccountNumber == "" || account.AccountName == "" {
		return nil, false, store.ErrInvalidInput
	}
	if account.ID == "" {
		account.ID = xid.New("acct")
	}

	// xmax = 0 only for a freshly inserted row
	var created bool
	saved := domain.SavedAccount{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO saved_accounts (id, account_name, account_number, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		ON CONFLICT (account_number)
		DO UPDATE SET account_name = EXCLUDED.account_name, updated_at = EXCLUDED.updated_at
		RETURNING id, account_name, account_number, created_at, updated_at, (xmax = 0)
	`, account.ID, account.AccountName, account.AccountNumber, store.Now()).Scan(
		&saved.ID, &saved.AccountName, &saved.AccountNumber, &saved.CreatedAt, &saved.UpdatedAt, &created)
	if err != nil {
		return nil, false, err
	}
	saved.CreatedAt = saved.CreatedAt.UTC()
	saved.UpdatedAt = saved.UpdatedAt.UTC()
	return &saved, created, nil
}

func (s *Store) DeleteSavedAccount(ctx context.Context, id string) (*domain.SavedAccount, error) {
	a, err := scanSavedAccount(s.db.QueryRowContext(ctx, `
		DELETE FROM saved_accounts
		WHERE id = $1
		RETURNING id, account_name, account_number, created_at, updated_at
	`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Audit log

func nullableJSON(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = store.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, module, action, target_id, target_name, user_id, user_name, before_snapshot, after_snapshot, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.Module, entry.Action, entry.TargetID, entry.TargetName, entry.UserID, entry.UserName,
		nullableJSON(entry.Before), nullableJSON(entry.After), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLog, error) {
	limit := store.AuditLimit(filter.Limit)
	q := psql.Select("id, module, action, target_id, target_name, user_id, user_name, before_snapshot, after_snapshot, created_at").
		From("audit_logs")
	q = timeRange(q, filter.TimeRange)
	q = equalIfSet(q, "module", filter.Module)
	q = equalIfSet(q, "action", filter.Action)
	q = equalIfSet(q, "user_id", filter.UserID)
	query, args, err := q.OrderBy("created_at DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var before, after []byte
		if err := rows.Scan(&entry.ID, &entry.Module, &entry.Action, &entry.TargetID, &entry.TargetName, &entry.UserID,
			&entry.UserName, &before, &after, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Before = before
		entry.After = after
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
