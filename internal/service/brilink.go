package service

import (
	"context"
	"strings"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/format"
)

func (s *Service) ListAgentTransactions(ctx context.Context, filter domain.AgentTransactionFilter) ([]domain.AgentTransaction, error) {
	return s.repo.ListAgentTransactions(ctx, filter)
}

func (s *Service) GetAgentTransaction(ctx context.Context, id string) (domain.AgentTransaction, error) {
	tx, err := s.repo.GetAgentTransaction(ctx, id)
	if err != nil {
		return domain.AgentTransaction{}, err
	}
	return *tx, nil
}

func (s *Service) CreateAgentTransaction(ctx context.Context, req domain.AgentTransactionRequest) (domain.AgentTransaction, error) {
	tx, err := buildAgentTransaction(req)
	if err != nil {
		return domain.AgentTransaction{}, err
	}
	actor := s.actor(ctx)
	tx.OperatorID = actor.UserID
	tx.OperatorName = actor.Name

	created, err := s.repo.CreateAgentTransaction(ctx, tx)
	if err != nil {
		return domain.AgentTransaction{}, err
	}

	s.logAudit(ctx, domain.ModuleBrilink, domain.AuditCreate, created.ID, agentTargetName(*created), nil, created)
	s.rememberAccount(ctx, *created)
	return *created, nil
}

func (s *Service) UpdateAgentTransaction(ctx context.Context, id string, req domain.AgentTransactionRequest) (domain.AgentTransaction, error) {
	existing, err := s.repo.GetAgentTransaction(ctx, id)
	if err != nil {
		return domain.AgentTransaction{}, err
	}
	tx, err := buildAgentTransaction(req)
	if err != nil {
		return domain.AgentTransaction{}, err
	}
	tx.ID = existing.ID
	tx.OperatorID = existing.OperatorID
	tx.OperatorName = existing.OperatorName
	tx.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateAgentTransaction(ctx, tx)
	if err != nil {
		return domain.AgentTransaction{}, err
	}

	s.logAudit(ctx, domain.ModuleBrilink, domain.AuditUpdate, saved.ID, agentTargetName(*saved), existing, saved)
	s.rememberAccount(ctx, *saved)
	return *saved, nil
}

func (s *Service) DeleteAgentTransaction(ctx context.Context, id string) error {
	existing, err := s.repo.GetAgentTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAgentTransaction(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, domain.ModuleBrilink, domain.AuditDelete, existing.ID, agentTargetName(*existing), existing, nil)
	return nil
}

// buildAgentTransaction validates req. The profit category always follows
// the type, and profit defaults to the admin fee.
func buildAgentTransaction(req domain.AgentTransactionRequest) (domain.AgentTransaction, error) {
	txType := strings.ToLower(strings.TrimSpace(req.Type))
	verr := &domain.ValidationError{}
	if !domain.IsAgentTransactionType(txType) {
		verr.Add("type", "jenis transaksi tidak dikenal")
	}
	if req.Amount.Int64() <= 0 {
		verr.Add("amount", "nominal harus lebih dari 0")
	}
	if req.AdminFee.Int64() < 0 {
		verr.Add("admin_fee", "biaya admin tidak boleh negatif")
	}

	profit := req.AdminFee.Int64()
	if req.Profit != nil {
		profit = req.Profit.Int64()
	}
	var balance *int64
	if req.BalanceAfter != nil {
		v := req.BalanceAfter.Int64()
		balance = &v
	}
	if err := verr.OrNil(); err != nil {
		return domain.AgentTransaction{}, err
	}

	return domain.AgentTransaction{
		Type:           txType,
		ProfitCategory: domain.ProfitCategoryFor(txType),
		AccountName:    strings.TrimSpace(req.AccountName),
		AccountNumber:  strings.TrimSpace(req.AccountNumber),
		Phone:          strings.TrimSpace(req.Phone),
		Amount:         req.Amount.Int64(),
		AdminFee:       req.AdminFee.Int64(),
		Profit:         profit,
		BalanceAfter:   balance,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		Note:           strings.TrimSpace(req.Note),
	}, nil
}

// rememberAccount saves the counterparty for quick reuse. It never fails the
// transaction that triggered it.
func (s *Service) rememberAccount(ctx context.Context, tx domain.AgentTransaction) {
	if tx.AccountName == "" || tx.AccountNumber == "" {
		return
	}
	account, created, err := s.repo.UpsertSavedAccount(ctx, domain.SavedAccount{
		AccountName:   tx.AccountName,
		AccountNumber: tx.AccountNumber,
	})
	if err != nil {
		s.logger.Warn("failed to save account", "account_number", tx.AccountNumber, "error", err)
		return
	}
	if created {
		s.logAudit(ctx, domain.ModuleSavedAccount, domain.AuditCreate, account.ID, account.AccountName, nil, account)
	}
}

func (s *Service) ListSavedAccounts(ctx context.Context) ([]domain.SavedAccount, error) {
	return s.repo.ListSavedAccounts(ctx)
}

func (s *Service) DeleteSavedAccount(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteSavedAccount(ctx, id)
	if err != nil {
		return err
	}

	s.logAudit(ctx, domain.ModuleSavedAccount, domain.AuditDelete, deleted.ID, deleted.AccountName, deleted, nil)
	return nil
}

func agentTargetName(tx domain.AgentTransaction) string {
	label := tx.Type
	switch {
	case tx.AccountName != "":
		label += " " + tx.AccountName
	case tx.Phone != "":
		label += " " + tx.Phone
	}
	return label + " " + format.Rupiah(tx.Amount)
}
