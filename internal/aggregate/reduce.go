package aggregate

import (
	"time"

	"tokoagen/backend/internal/domain"
)

func emptyTotals() domain.Totals {
	profit := make(map[string]int64, 3)
	for _, c := range domain.ProfitCategories() {
		profit[c] = 0
	}
	return domain.Totals{AgentProfit: profit}
}

// Reduce sums sales and agent-banking transactions into totals. Empty input
// gives all-zero totals.
func Reduce(sales []domain.Sale, txs []domain.AgentTransaction) domain.Totals {
	t := emptyTotals()
	for _, sale := range sales {
		t.Omzet += sale.Total
		t.SaleCount++
		for _, item := range sale.Items {
			t.Cost += item.UnitCost * int64(item.Quantity)
			t.ItemCount += item.Quantity
		}
	}
	t.GrossMargin = t.Omzet - t.Cost

	for _, tx := range txs {
		category := tx.ProfitCategory
		if category == "" {
			category = domain.ProfitBrilink
		}
		t.AgentProfit[category] += tx.Profit
		t.AgentProfitTotal += tx.Profit
		t.AgentCount++
	}
	t.TotalProfit = t.GrossMargin + t.AgentProfitTotal
	return t
}

func SalesIn(w Window, sales []domain.Sale) []domain.Sale {
	out := make([]domain.Sale, 0, len(sales))
	for _, s := range sales {
		if w.Contains(s.CreatedAt) {
			out = append(out, s)
		}
	}
	return out
}

func AgentTransactionsIn(w Window, txs []domain.AgentTransaction) []domain.AgentTransaction {
	out := make([]domain.AgentTransaction, 0, len(txs))
	for _, tx := range txs {
		if w.Contains(tx.CreatedAt) {
			out = append(out, tx)
		}
	}
	return out
}

// DailyBreakdown gives one row per local day of w, empty days included,
// oldest first.
func DailyBreakdown(w Window, loc *time.Location, sales []domain.Sale, txs []domain.AgentTransaction) []domain.DailyRow {
	salesByDay := make(map[string][]domain.Sale)
	for _, s := range sales {
		key := s.CreatedAt.In(loc).Format(DateLayout)
		salesByDay[key] = append(salesByDay[key], s)
	}
	txsByDay := make(map[string][]domain.AgentTransaction)
	for _, tx := range txs {
		key := tx.CreatedAt.In(loc).Format(DateLayout)
		txsByDay[key] = append(txsByDay[key], tx)
	}

	days := w.Days(loc)
	rows := make([]domain.DailyRow, 0, len(days))
	for _, day := range days {
		rows = append(rows, domain.DailyRow{
			Date:   day.Label,
			Totals: Reduce(salesByDay[day.Label], txsByDay[day.Label]),
		})
	}
	return rows
}

// NewestFirst returns rows in reverse order without touching the input.
func NewestFirst(rows []domain.DailyRow) []domain.DailyRow {
	out := make([]domain.DailyRow, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row
	}
	return out
}

// CategorySlice recomputes omzet and item count from the lines whose product
// belongs to categoryID. Cost and margin are not derived for a slice.
func CategorySlice(sales []domain.Sale, categoryID string, productCategory map[string]string) domain.CategorySlice {
	slice := domain.CategorySlice{CategoryID: categoryID}
	for _, sale := range sales {
		for _, item := range sale.Items {
			if productCategory[item.ProductID] != categoryID {
				continue
			}
			slice.Omzet += item.Subtotal
			slice.ItemCount += item.Quantity
		}
	}
	return slice
}
