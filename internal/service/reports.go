package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tokoagen/backend/internal/aggregate"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/report"
)

const (
	PeriodToday  = "today"
	PeriodWeek   = "7d"
	PeriodMonth  = "30d"
	PeriodCustom = "custom"
)

// ReportQuery selects a report period. From and To are dates (YYYY-MM-DD) in
// the shop's time zone and only apply to the custom period.
type ReportQuery struct {
	Period     string
	From       string
	To         string
	CategoryID string
}

type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (s *Service) window(q ReportQuery) (aggregate.Window, error) {
	now := s.now()
	period := strings.ToLower(strings.TrimSpace(q.Period))
	if period == "" && strings.TrimSpace(q.From) != "" {
		period = PeriodCustom
	}

	switch period {
	case "", PeriodToday:
		return aggregate.Day(now, s.loc), nil
	case PeriodWeek:
		return aggregate.RollingDays(now, 7, s.loc), nil
	case PeriodMonth:
		return aggregate.RollingDays(now, 30, s.loc), nil
	case PeriodCustom:
		verr := &domain.ValidationError{}
		from, err := time.ParseInLocation(aggregate.DateLayout, strings.TrimSpace(q.From), s.loc)
		if err != nil {
			verr.Add("from", "format tanggal YYYY-MM-DD")
		}
		to := from
		if strings.TrimSpace(q.To) != "" {
			if to, err = time.ParseInLocation(aggregate.DateLayout, strings.TrimSpace(q.To), s.loc); err != nil {
				verr.Add("to", "format tanggal YYYY-MM-DD")
			}
		}
		if err := verr.OrNil(); err != nil {
			return aggregate.Window{}, err
		}
		w, err := aggregate.Custom(from, to, s.loc)
		if errors.Is(err, aggregate.ErrInvalidWindow) {
			return aggregate.Window{}, domain.NewValidationError("to", "tanggal akhir sebelum tanggal awal")
		}
		return w, err
	default:
		return aggregate.Window{}, domain.NewValidationError("period", "periode tidak dikenal")
	}
}

func (s *Service) load(ctx context.Context, w aggregate.Window) ([]domain.Sale, []domain.AgentTransaction, error) {
	r := domain.TimeRange{From: w.Start, To: w.End}
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{TimeRange: r})
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.repo.ListAgentTransactions(ctx, domain.AgentTransactionFilter{TimeRange: r})
	if err != nil {
		return nil, nil, err
	}
	return aggregate.SalesIn(w, sales), aggregate.AgentTransactionsIn(w, txs), nil
}

// PeriodReport sums a period with its daily breakdown (oldest first) and,
// when a category is given, that category's slice of sales.
func (s *Service) PeriodReport(ctx context.Context, q ReportQuery) (domain.PeriodReport, error) {
	w, err := s.window(q)
	if err != nil {
		return domain.PeriodReport{}, err
	}
	sales, txs, err := s.load(ctx, w)
	if err != nil {
		return domain.PeriodReport{}, err
	}

	r := domain.PeriodReport{
		Label:             w.Label,
		From:              w.Start,
		To:                w.End,
		Totals:            aggregate.Reduce(sales, txs),
		Daily:             aggregate.DailyBreakdown(w, s.loc, sales, txs),
		Sales:             sales,
		AgentTransactions: txs,
	}

	if categoryID := strings.TrimSpace(q.CategoryID); categoryID != "" {
		products, err := s.repo.ListProducts(ctx)
		if err != nil {
			return domain.PeriodReport{}, err
		}
		productCategory := make(map[string]string, len(products))
		for _, p := range products {
			productCategory[p.ID] = p.CategoryID
		}
		slice := aggregate.CategorySlice(sales, categoryID, productCategory)
		r.Category = &slice
	}
	return r, nil
}

// ShiftReport totals one shift. With no date and no shift it reports the
// shift running now.
func (s *Service) ShiftReport(ctx context.Context, date string, shift string) (domain.ShiftReport, error) {
	now := s.now()
	date, shift = strings.TrimSpace(date), strings.TrimSpace(shift)

	var (
		which   aggregate.Shift
		w       aggregate.Window
		current bool
	)
	if date == "" && shift == "" {
		which, w = aggregate.CurrentShift(now, s.loc)
		current = true
	} else {
		day := now
		verr := &domain.ValidationError{}
		if date != "" {
			parsed, err := time.ParseInLocation(aggregate.DateLayout, date, s.loc)
			if err != nil {
				verr.Add("date", "format tanggal YYYY-MM-DD")
			}
			day = parsed
		}
		which = aggregate.ShiftOf(now, s.loc)
		if shift != "" {
			parsed, err := aggregate.ParseShift(shift)
			if err != nil {
				verr.Add("shift", "shift harus A atau B")
			}
			which = parsed
		}
		if err := verr.OrNil(); err != nil {
			return domain.ShiftReport{}, err
		}
		w = aggregate.ShiftWindow(day, which, s.loc)
		current = w.Contains(now)
	}

	sales, txs, err := s.load(ctx, w)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	return domain.ShiftReport{
		Date:    w.Start.In(s.loc).Format(aggregate.DateLayout),
		Shift:   string(which),
		Current: current,
		From:    w.Start,
		To:      w.End,
		Totals:  aggregate.Reduce(sales, txs),
	}, nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardResponse, error) {
	today, err := s.PeriodReport(ctx, ReportQuery{Period: PeriodToday})
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	shift, err := s.ShiftReport(ctx, "", "")
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	low, err := s.LowStock(ctx)
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	return domain.DashboardResponse{Today: today.Totals, CurrentShift: shift, LowStock: low}, nil
}

// ExportReport renders the period report as a workbook.
func (s *Service) ExportReport(ctx context.Context, q ReportQuery) (Export, error) {
	r, err := s.PeriodReport(ctx, q)
	if err != nil {
		return Export{}, err
	}
	data, err := report.Render(s.shopName, r, s.loc)
	if err != nil {
		return Export{}, err
	}
	return Export{
		FileName:    report.FileName(r, s.loc),
		ContentType: report.ContentType,
		Data:        data,
	}, nil
}
