package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tokoagen/backend/internal/aggregate"
	"tokoagen/backend/internal/domain"
)

var wib = time.FixedZone("WIB", 7*3600)

func sampleReport(t *testing.T, withAgent bool) domain.PeriodReport {
	t.Helper()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, wib)
	w, err := aggregate.Custom(start, start.AddDate(0, 0, 1), wib)
	require.NoError(t, err)

	sales := []domain.Sale{{
		ID:            "sale-1",
		Items:         []domain.SaleItem{{ProductID: "p1", ProductName: "Teh Botol", Quantity: 3, UnitPrice: 5000, UnitCost: 3500, Subtotal: 15000}},
		Subtotal:      15000,
		Total:         15000,
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     start.Add(9 * time.Hour).UTC(),
	}}
	var txs []domain.AgentTransaction
	if withAgent {
		txs = []domain.AgentTransaction{{
			ID: "agt-1", Type: domain.AgentTransfer, ProfitCategory: domain.ProfitBrilink,
			AccountName: "Budi", Amount: 500000, AdminFee: 5000, Profit: 5000,
			CreatedAt: start.Add(10 * time.Hour).UTC(),
		}}
	}

	return domain.PeriodReport{
		Label:             w.Label,
		From:              w.Start,
		To:                w.End,
		Totals:            aggregate.Reduce(sales, txs),
		Daily:             aggregate.DailyBreakdown(w, wib, sales, txs),
		Sales:             sales,
		AgentTransactions: txs,
	}
}

func TestBuildSkipsEmptyDetailSheets(t *testing.T) {
	f, err := Build("Toko Agen", sampleReport(t, false), wib)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetDaily, SheetSales}, f.GetSheetList())
}

func TestBuildWritesNumericCells(t *testing.T) {
	f, err := Build("Toko Agen", sampleReport(t, true), wib)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetDaily, SheetSales, SheetAgent}, f.GetSheetList())

	// Sales Detail: Total in column D of the first data row.
	total, err := f.GetCellValue(SheetSales, "D2")
	require.NoError(t, err)
	assert.Equal(t, "15000", total)
	typ, err := f.GetCellType(SheetSales, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	profit, err := f.GetCellValue(SheetAgent, "F2")
	require.NoError(t, err)
	assert.Equal(t, "5000", profit)

	// Daily Breakdown is newest first: 2025-03-11 then 2025-03-10.
	rows, err := f.GetRows(SheetDaily)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-03-11", rows[1][0])
	assert.Equal(t, "2025-03-10", rows[2][0])
	assert.Equal(t, "15000", rows[2][1])
}

func TestRenderProducesReadableWorkbook(t *testing.T) {
	r := sampleReport(t, true)
	data, err := Render("Toko Agen", r, wib)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	shop, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Toko Agen", shop)
	assert.Equal(t, "laporan_2025-03-10_2025-03-11.xlsx", FileName(r, wib))
}
