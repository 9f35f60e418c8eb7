package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/sku"
	"tokoagen/backend/internal/store"
)

// Categories

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return *category, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.NewValidationError("name", "nama kategori wajib diisi")
	}
	if err := s.ensureCategoryNameFree(ctx, name, ""); err != nil {
		return domain.Category{}, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsActive:    active,
	})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, domain.ModuleCategories, domain.AuditCreate, created.ID, created.Name, nil, created)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	updated := *existing
	if name := trimmed(req.Name); name != nil {
		if *name == "" {
			return domain.Category{}, domain.NewValidationError("name", "nama kategori wajib diisi")
		}
		if err := s.ensureCategoryNameFree(ctx, *name, id); err != nil {
			return domain.Category{}, err
		}
		updated.Name = *name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	updated.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, domain.ModuleCategories, domain.AuditUpdate, saved.ID, saved.Name, existing, saved)
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, domain.ModuleCategories, domain.AuditDelete, existing.ID, existing.Name, existing, nil)
	return nil
}

func (s *Service) ensureCategoryNameFree(ctx context.Context, name string, selfID string) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID != selfID && strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return fmt.Errorf("%w: category %q already exists", store.ErrDuplicate, name)
		}
	}
	return nil
}

// Products

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

// LowStock lists active products at or below their minimum stock, emptiest
// first.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.IsActive && p.Stock <= p.MinStock {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low, nil
}

// PreviewSKU shows the code a new product in categoryID would receive.
func (s *Service) PreviewSKU(ctx context.Context, categoryID string) (domain.SKUPreviewResponse, error) {
	code, err := s.nextSKU(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return domain.SKUPreviewResponse{}, err
	}
	return domain.SKUPreviewResponse{CategoryID: categoryID, SKU: code}, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	categoryID := strings.TrimSpace(req.CategoryID)

	verr := &domain.ValidationError{}
	if name == "" {
		verr.Add("name", "nama produk wajib diisi")
	}
	if categoryID == "" {
		verr.Add("category_id", "kategori wajib dipilih")
	}
	checkProductNumbers(verr, req.Price.Int64(), req.Cost.Int64(), req.MinStock)
	if req.Stock < 0 {
		verr.Add("stock", "stok tidak boleh negatif")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Product{}, err
	}

	if err := s.ensureProductNameFree(ctx, name, ""); err != nil {
		return domain.Product{}, err
	}
	code, err := s.nextSKU(ctx, categoryID)
	if err != nil {
		return domain.Product{}, err
	}
	if code == "" {
		return domain.Product{}, domain.NewValidationError("category_id", "kategori tidak ditemukan")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:       name,
		SKU:        code,
		CategoryID: categoryID,
		Price:      req.Price.Int64(),
		Cost:       req.Cost.Int64(),
		Stock:      req.Stock,
		MinStock:   req.MinStock,
		Unit:       strings.TrimSpace(req.Unit),
		IsActive:   active,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, domain.ModuleProducts, domain.AuditCreate, created.ID, created.Name, nil, created)
	return *created, nil
}

// UpdateProduct edits a product. The SKU stays as generated even when the
// category changes, and stock only moves through sales.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	verr := &domain.ValidationError{}
	if name := trimmed(req.Name); name != nil {
		if *name == "" {
			verr.Add("name", "nama produk wajib diisi")
		}
		updated.Name = *name
	}
	if categoryID := trimmed(req.CategoryID); categoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *categoryID); err != nil {
			verr.Add("category_id", "kategori tidak ditemukan")
		}
		updated.CategoryID = *categoryID
	}
	if req.Price != nil {
		updated.Price = req.Price.Int64()
	}
	if req.Cost != nil {
		updated.Cost = req.Cost.Int64()
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	checkProductNumbers(verr, updated.Price, updated.Cost, updated.MinStock)
	if err := verr.OrNil(); err != nil {
		return domain.Product{}, err
	}
	if !strings.EqualFold(updated.Name, existing.Name) {
		if err := s.ensureProductNameFree(ctx, updated.Name, id); err != nil {
			return domain.Product{}, err
		}
	}
	updated.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, domain.ModuleProducts, domain.AuditUpdate, saved.ID, saved.Name, existing, saved)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, domain.ModuleProducts, domain.AuditDelete, existing.ID, existing.Name, existing, nil)
	return nil
}

func (s *Service) nextSKU(ctx context.Context, categoryID string) (string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return "", err
	}
	existing := make([]string, 0, len(products))
	for _, p := range products {
		existing = append(existing, p.SKU)
	}
	return sku.Generate(categoryID, categories, existing), nil
}

func (s *Service) ensureProductNameFree(ctx context.Context, name string, selfID string) error {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.ID != selfID && strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return fmt.Errorf("%w: product %q already exists", store.ErrDuplicate, name)
		}
	}
	return nil
}

func checkProductNumbers(verr *domain.ValidationError, price int64, cost int64, minStock int) {
	if price < 0 {
		verr.Add("price", "harga tidak boleh negatif")
	}
	if cost < 0 {
		verr.Add("cost", "modal tidak boleh negatif")
	}
	if minStock < 0 {
		verr.Add("min_stock", "stok minimum tidak boleh negatif")
	}
}
