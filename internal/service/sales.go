package service

import (
	"context"
	"fmt"
	"strings"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/format"
)

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// CreateSale prices the lines at the current product price and takes the
// sold quantities out of stock.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	sale, err := s.buildSale(ctx, req, nil)
	if err != nil {
		return domain.Sale{}, err
	}
	actor := s.actor(ctx)
	sale.CashierID = actor.UserID
	sale.CashierName = actor.Name

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, domain.ModuleSales, domain.AuditCreate, created.ID, saleTargetName(*created), nil, created)
	return *created, nil
}

// UpdateSale replaces the lines and payment of a sale. Stock moves by the
// difference between the stored lines and the new ones.
func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleRequest) (domain.Sale, error) {
	existing, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}

	sale, err := s.buildSale(ctx, req, existing)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.ID = existing.ID
	sale.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, domain.ModuleSales, domain.AuditUpdate, saved.ID, saleTargetName(*saved), existing, saved)
	return *saved, nil
}

// DeleteSale removes a sale and puts its quantities back into stock.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteSale(ctx, id)
	if err != nil {
		return err
	}

	s.logAudit(ctx, domain.ModuleSales, domain.AuditDelete, deleted.ID, saleTargetName(*deleted), deleted, nil)
	return nil
}

// buildSale validates req and computes lines and totals. When editing, lines
// for products already on the sale keep the price and cost they were sold at.
func (s *Service) buildSale(ctx context.Context, req domain.SaleRequest, existing *domain.Sale) (domain.Sale, error) {
	verr := &domain.ValidationError{}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.PaymentCash
	}
	if !domain.IsPaymentMethod(method) {
		verr.Add("payment_method", "metode pembayaran tidak dikenal")
	}
	if len(req.Items) == 0 {
		verr.Add("items", "minimal satu item")
	}

	sold := make(map[string]domain.SaleItem)
	if existing != nil {
		for _, item := range existing.Items {
			sold[item.ProductID] = item
		}
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	var subtotal int64
	for i, line := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		productID := strings.TrimSpace(line.ProductID)
		if line.Quantity < 1 {
			verr.Add(field+".quantity", "jumlah minimal 1")
			continue
		}

		item := domain.SaleItem{ProductID: productID, Quantity: line.Quantity}
		if prior, ok := sold[productID]; ok {
			item.ProductName = prior.ProductName
			item.UnitPrice = prior.UnitPrice
			item.UnitCost = prior.UnitCost
		} else if p, ok := byID[productID]; ok && p.IsActive {
			item.ProductName = p.Name
			item.UnitPrice = p.Price
			item.UnitCost = p.Cost
		} else {
			verr.Add(field+".product_id", "produk tidak ditemukan atau tidak aktif")
			continue
		}
		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		subtotal += item.Subtotal
		items = append(items, item)
	}

	discount := req.Discount.Int64()
	if discount < 0 || discount > subtotal {
		verr.Add("discount", "diskon harus antara 0 dan subtotal")
	}
	total := subtotal - discount

	paid := req.AmountPaid.Int64()
	if method != domain.PaymentCash && paid == 0 {
		paid = total
	}
	if paid < total {
		verr.Add("amount_paid", "pembayaran kurang dari total")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Sale{}, err
	}

	return domain.Sale{
		Items:         items,
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		PaymentMethod: method,
		AmountPaid:    paid,
		Change:        paid - total,
	}, nil
}

// Receipt renders a plain-text receipt for printing or preview.
func (s *Service) Receipt(ctx context.Context, id string) (domain.ReceiptResponse, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	const width = 32
	rule := strings.Repeat("-", width)
	lines := []string{
		center(s.shopName, width),
		strings.Repeat("=", width),
		"No   : " + sale.ID,
		"Tgl  : " + sale.CreatedAt.In(s.loc).Format("02/01/2006 15:04"),
		"Kasir: " + sale.CashierName,
		rule,
	}
	for _, item := range sale.Items {
		lines = append(lines,
			item.ProductName,
			twoColumns(fmt.Sprintf("  %d x %s", item.Quantity, format.Number(item.UnitPrice)), format.Number(item.Subtotal), width),
		)
	}
	lines = append(lines,
		rule,
		twoColumns("Subtotal", format.Rupiah(sale.Subtotal), width),
	)
	if sale.Discount > 0 {
		lines = append(lines, twoColumns("Diskon", "-"+format.Rupiah(sale.Discount), width))
	}
	lines = append(lines,
		twoColumns("Total", format.Rupiah(sale.Total), width),
		twoColumns("Bayar ("+strings.ToUpper(sale.PaymentMethod)+")", format.Rupiah(sale.AmountPaid), width),
		twoColumns("Kembali", format.Rupiah(sale.Change), width),
		strings.Repeat("=", width),
		center("Terima kasih", width),
		"",
	)

	return domain.ReceiptResponse{
		SaleID:      sale.ID,
		PreviewText: strings.Join(lines, "\n"),
	}, nil
}

func saleTargetName(sale domain.Sale) string {
	return fmt.Sprintf("%d item, %s", len(sale.Items), format.Rupiah(sale.Total))
}

func twoColumns(left string, right string, width int) string {
	gap := width - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(text string, width int) string {
	pad := (width - len([]rune(text))) / 2
	if pad < 1 {
		return text
	}
	return strings.Repeat(" ", pad) + text
}
