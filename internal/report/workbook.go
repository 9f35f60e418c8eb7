// Package report renders period reports as spreadsheet workbooks.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tokoagen/backend/internal/aggregate"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/format"
)

const (
	SheetSummary = "Summary"
	SheetDaily   = "Daily Breakdown"
	SheetSales   = "Sales Detail"
	SheetAgent   = "Agent Banking Detail"

	timestampLayout = "2006-01-02 15:04"
)

// ContentType is the MIME type of a workbook produced by Build.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Build writes r into a new workbook. The detail sheets only appear when the
// report holds rows for them. Money and counts are numeric cells.
func Build(shopName string, r domain.PeriodReport, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	w := &writer{f: f, header: header}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	w.summary(shopName, r, loc)
	w.daily(r)
	if len(r.Sales) > 0 {
		w.sales(r.Sales, loc)
	}
	if len(r.AgentTransactions) > 0 {
		w.agent(r.AgentTransactions, loc)
	}
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	return f, nil
}

// Render builds the workbook and returns its bytes.
func Render(shopName string, r domain.PeriodReport, loc *time.Location) ([]byte, error) {
	f, err := Build(shopName, r, loc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name for a report covering r.
func FileName(r domain.PeriodReport, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("laporan_%s_%s.xlsx",
		r.From.In(loc).Format(aggregate.DateLayout), r.To.In(loc).Format(aggregate.DateLayout))
}

// writer keeps the first error so the sheet builders read straight through.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) sheet(name string) {
	if w.err != nil || name == SheetSummary {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *writer) row(sheet string, n int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *writer) headerRow(sheet string, columns ...interface{}) {
	w.row(sheet, 1, columns...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(sheet, "A1", last, w.header)
	if w.err == nil {
		w.err = w.f.SetColWidth(sheet, "A", "A", 20)
	}
}

func (w *writer) summary(shopName string, r domain.PeriodReport, loc *time.Location) {
	t := r.Totals
	rows := [][]interface{}{
		{"Toko", shopName},
		{"Periode", r.Label},
		{"Dari", r.From.In(loc).Format(timestampLayout)},
		{"Sampai", r.To.In(loc).Format(timestampLayout)},
		{"Omzet", t.Omzet},
		{"Modal", t.Cost},
		{"Laba Kotor", t.GrossMargin},
		{"Margin", format.Percent(t.GrossMargin, t.Omzet)},
	}
	for _, category := range domain.ProfitCategories() {
		rows = append(rows, []interface{}{"Laba " + categoryLabel(category), t.AgentProfit[category]})
	}
	rows = append(rows,
		[]interface{}{"Laba Agen Total", t.AgentProfitTotal},
		[]interface{}{"Total Laba", t.TotalProfit},
		[]interface{}{"Jumlah Penjualan", t.SaleCount},
		[]interface{}{"Item Terjual", t.ItemCount},
		[]interface{}{"Transaksi Agen", t.AgentCount},
	)
	if r.Category != nil {
		rows = append(rows,
			[]interface{}{"Kategori", r.Category.CategoryID},
			[]interface{}{"Omzet Kategori", r.Category.Omzet},
			[]interface{}{"Item Kategori", r.Category.ItemCount},
		)
	}

	w.headerRow(SheetSummary, "Keterangan", "Nilai")
	for i, values := range rows {
		w.row(SheetSummary, i+2, values...)
	}
}

func (w *writer) daily(r domain.PeriodReport) {
	w.sheet(SheetDaily)
	w.headerRow(SheetDaily, "Tanggal", "Omzet", "Modal", "Laba Kotor", "Laba Agen", "Total Laba", "Jumlah Transaksi")
	for i, day := range aggregate.NewestFirst(r.Daily) {
		t := day.Totals
		w.row(SheetDaily, i+2, day.Date, t.Omzet, t.Cost, t.GrossMargin, t.AgentProfitTotal, t.TotalProfit, t.SaleCount+t.AgentCount)
	}
}

func (w *writer) sales(sales []domain.Sale, loc *time.Location) {
	w.sheet(SheetSales)
	w.headerRow(SheetSales, "Waktu", "Item", "Metode", "Total", "Modal", "Laba")
	for i, sale := range sales {
		var cost int64
		names := make([]string, 0, len(sale.Items))
		for _, item := range sale.Items {
			cost += item.UnitCost * int64(item.Quantity)
			names = append(names, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
		}
		w.row(SheetSales, i+2,
			sale.CreatedAt.In(loc).Format(timestampLayout),
			strings.Join(names, ", "),
			strings.ToUpper(sale.PaymentMethod),
			sale.Total,
			cost,
			sale.Total-cost,
		)
	}
}

func (w *writer) agent(txs []domain.AgentTransaction, loc *time.Location) {
	w.sheet(SheetAgent)
	w.headerRow(SheetAgent, "Waktu", "Jenis", "Keterangan", "Nominal", "Biaya Admin", "Laba")
	for i, tx := range txs {
		w.row(SheetAgent, i+2,
			tx.CreatedAt.In(loc).Format(timestampLayout),
			tx.Type,
			describe(tx),
			tx.Amount,
			tx.AdminFee,
			tx.Profit,
		)
	}
}

func describe(tx domain.AgentTransaction) string {
	parts := make([]string, 0, 3)
	if tx.AccountName != "" {
		parts = append(parts, tx.AccountName)
	}
	if tx.AccountNumber != "" {
		parts = append(parts, tx.AccountNumber)
	}
	if tx.Phone != "" {
		parts = append(parts, tx.Phone)
	}
	if tx.Note != "" {
		parts = append(parts, tx.Note)
	}
	return strings.Join(parts, " / ")
}

func categoryLabel(category string) string {
	switch category {
	case domain.ProfitBillPayment:
		return "Tagihan"
	case domain.ProfitFuel:
		return "BBM"
	default:
		return "BRILink"
	}
}
