package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tokoagen/backend/internal/domain"
)

func TestStockDeltas(t *testing.T) {
	before := []domain.SaleItem{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 1}}
	after := []domain.SaleItem{{ProductID: "p1", Quantity: 5}, {ProductID: "p3", Quantity: 2}, {ProductID: "p2", Quantity: 1}}

	assert.Equal(t, []domain.StockDelta{
		{ProductID: "p1", Delta: -2},
		{ProductID: "p3", Delta: -2},
	}, StockDeltas(before, after))

	assert.Equal(t, []domain.StockDelta{{ProductID: "p1", Delta: -3}}, StockDeltas(nil, []domain.SaleItem{{ProductID: "p1", Quantity: 3}}))
	assert.Equal(t, []domain.StockDelta{{ProductID: "p1", Delta: 3}}, StockDeltas([]domain.SaleItem{{ProductID: "p1", Quantity: 3}}, nil))
	assert.Empty(t, StockDeltas(before, before))
}

func TestAuditLimit(t *testing.T) {
	assert.Equal(t, AuditLogCap, AuditLimit(0))
	assert.Equal(t, AuditLogCap, AuditLimit(10000))
	assert.Equal(t, 50, AuditLimit(50))
}
