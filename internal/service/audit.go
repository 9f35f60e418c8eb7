package service

import (
	"context"

	"tokoagen/backend/internal/audit"
	"tokoagen/backend/internal/domain"
)

// ListAuditLogs returns entries newest first with the changed fields worked
// out from their snapshots.
func (s *Service) ListAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLogView, error) {
	if filter.Limit < 1 || filter.Limit > s.auditLimit {
		filter.Limit = s.auditLimit
	}
	logs, err := s.repo.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]domain.AuditLogView, 0, len(logs))
	for _, entry := range logs {
		views = append(views, domain.AuditLogView{AuditLog: entry, ChangedFields: s.changedFields(entry)})
	}
	return views, nil
}

func (s *Service) changedFields(entry domain.AuditLog) []string {
	before, err := audit.Decode(entry.Before)
	if err != nil {
		s.logger.Debug("unreadable audit snapshot", "audit_id", entry.ID, "error", err)
		return []string{}
	}
	after, err := audit.Decode(entry.After)
	if err != nil {
		s.logger.Debug("unreadable audit snapshot", "audit_id", entry.ID, "error", err)
		return []string{}
	}
	return audit.ChangedFields(before, after)
}
