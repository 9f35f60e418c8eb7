package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoagen/backend/internal/domain"
)

var wib = time.FixedZone("WIB", 7*60*60)

func at(day int, hour int, minute int, second int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, second, 0, wib)
}

func TestShiftBoundary(t *testing.T) {
	assert.Equal(t, ShiftA, ShiftOf(at(10, 13, 0, 30), wib))
	assert.Equal(t, ShiftB, ShiftOf(at(10, 13, 1, 0), wib))
	assert.Equal(t, ShiftA, ShiftOf(at(10, 0, 0, 0), wib))
	assert.Equal(t, ShiftB, ShiftOf(at(10, 23, 59, 59), wib))

	a := ShiftWindow(at(10, 9, 0, 0), ShiftA, wib)
	b := ShiftWindow(at(10, 9, 0, 0), ShiftB, wib)
	assert.True(t, a.Contains(at(10, 13, 0, 30)))
	assert.False(t, b.Contains(at(10, 13, 0, 30)))
	assert.True(t, b.Contains(at(10, 13, 1, 0)))
	assert.False(t, a.Contains(at(10, 13, 1, 0)))
	assert.Equal(t, at(10, 13, 0, 59).Add(999*time.Millisecond), a.End)
	assert.Equal(t, at(10, 13, 1, 0), b.Start)
}

func TestShiftBoundaryInOtherZone(t *testing.T) {
	// 06:00:30 UTC is 13:00:30 in Jakarta
	ts := time.Date(2025, time.March, 10, 6, 0, 30, 0, time.UTC)
	assert.Equal(t, ShiftA, ShiftOf(ts, wib))
}

func TestCurrentShift(t *testing.T) {
	shift, w := CurrentShift(at(10, 15, 0, 0), wib)
	assert.Equal(t, ShiftB, shift)
	assert.Equal(t, at(10, 13, 1, 0), w.Start)
}

func TestDayAndRollingWindows(t *testing.T) {
	day := Day(at(10, 15, 4, 5), wib)
	assert.Equal(t, at(10, 0, 0, 0), day.Start)
	assert.Equal(t, at(10, 23, 59, 59).Add(999*time.Millisecond), day.End)
	assert.Equal(t, "2025-03-10", day.Label)

	week := RollingDays(at(10, 8, 0, 0), 7, wib)
	assert.Equal(t, at(4, 0, 0, 0), week.Start)
	assert.Equal(t, day.End, week.End)
	assert.Len(t, week.Days(wib), 7)
}

func TestCustomWindow(t *testing.T) {
	w, err := Custom(at(3, 14, 0, 0), at(5, 9, 0, 0), wib)
	require.NoError(t, err)
	assert.Equal(t, at(3, 0, 0, 0), w.Start)
	assert.Equal(t, at(5, 23, 59, 59).Add(999*time.Millisecond), w.End)

	_, err = Custom(at(5, 0, 0, 0), at(3, 0, 0, 0), wib)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestReduceEmpty(t *testing.T) {
	totals := Reduce(nil, nil)

	assert.Zero(t, totals.Omzet)
	assert.Zero(t, totals.Cost)
	assert.Zero(t, totals.GrossMargin)
	assert.Zero(t, totals.TotalProfit)
	assert.Equal(t, map[string]int64{"brilink": 0, "bill_payment": 0, "fuel": 0}, totals.AgentProfit)
}

func TestReduce(t *testing.T) {
	sales := []domain.Sale{
		{Total: 25000, Items: []domain.SaleItem{
			{ProductID: "p1", Quantity: 2, UnitCost: 8000, Subtotal: 20000},
			{ProductID: "p2", Quantity: 1, Subtotal: 5000},
		}},
		{Total: 9000, Items: []domain.SaleItem{{ProductID: "p1", Quantity: 1, UnitCost: 8000, Subtotal: 10000}}},
	}
	txs := []domain.AgentTransaction{
		{ProfitCategory: domain.ProfitBrilink, Profit: 3000},
		{ProfitCategory: domain.ProfitFuel, Profit: 2000},
		{Profit: 500},
	}

	totals := Reduce(sales, txs)

	assert.Equal(t, int64(34000), totals.Omzet)
	assert.Equal(t, int64(24000), totals.Cost)
	assert.Equal(t, int64(10000), totals.GrossMargin)
	assert.Equal(t, int64(3500), totals.AgentProfit[domain.ProfitBrilink])
	assert.Equal(t, int64(2000), totals.AgentProfit[domain.ProfitFuel])
	assert.Equal(t, int64(5500), totals.AgentProfitTotal)
	assert.Equal(t, int64(15500), totals.TotalProfit)
	assert.Equal(t, 2, totals.SaleCount)
	assert.Equal(t, 4, totals.ItemCount)
	assert.Equal(t, 3, totals.AgentCount)
}

func TestDailyBreakdownIncludesEmptyDays(t *testing.T) {
	w := RollingDays(at(10, 20, 0, 0), 3, wib)
	sales := []domain.Sale{
		{Total: 1000, CreatedAt: at(8, 23, 30, 0)},
		{Total: 2000, CreatedAt: at(10, 0, 10, 0)},
	}
	txs := []domain.AgentTransaction{{Profit: 700, CreatedAt: at(10, 12, 0, 0)}}

	rows := DailyBreakdown(w, wib, sales, txs)

	require.Len(t, rows, 3)
	assert.Equal(t, "2025-03-08", rows[0].Date)
	assert.Equal(t, int64(1000), rows[0].Totals.Omzet)
	assert.Equal(t, "2025-03-09", rows[1].Date)
	assert.Zero(t, rows[1].Totals.Omzet)
	assert.Equal(t, int64(2700), rows[2].Totals.TotalProfit)

	newest := NewestFirst(rows)
	assert.Equal(t, "2025-03-10", newest[0].Date)
	assert.Equal(t, "2025-03-08", rows[0].Date)
}

func TestCategorySlice(t *testing.T) {
	sales := []domain.Sale{{Items: []domain.SaleItem{
		{ProductID: "p1", Quantity: 2, Subtotal: 20000, UnitCost: 5000},
		{ProductID: "p2", Quantity: 1, Subtotal: 5000},
		{ProductID: "p3", Quantity: 3, Subtotal: 3000},
	}}}
	categories := map[string]string{"p1": "drinks", "p2": "snacks", "p3": "drinks"}

	slice := CategorySlice(sales, "drinks", categories)

	assert.Equal(t, int64(23000), slice.Omzet)
	assert.Equal(t, 5, slice.ItemCount)
}

func TestWindowFilters(t *testing.T) {
	w := Day(at(10, 12, 0, 0), wib)
	sales := []domain.Sale{{ID: "in", CreatedAt: at(10, 1, 0, 0)}, {ID: "out", CreatedAt: at(11, 0, 0, 0)}}
	txs := []domain.AgentTransaction{{ID: "in", CreatedAt: at(10, 23, 59, 59)}}

	got := SalesIn(w, sales)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
	assert.Len(t, AgentTransactionsIn(w, txs), 1)
}
