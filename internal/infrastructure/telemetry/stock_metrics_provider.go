// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormStockMetricsProvider implements StockMetricsProvider using GORM.
// It computes per-item stock from the movement ledger and compares it
// against each catalog item's reorder level.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider.
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// GetLowStockCount returns the number of items whose ledger-derived
// stock is at or below their reorder level. Items with a zero reorder
// level never count as low.
func (p *GormStockMetricsProvider) GetLowStockCount(ctx context.Context) (int64, error) {
	var rawCount int64
	err := p.db.WithContext(ctx).
		Table("raw_materials AS rm").
		Joins(`LEFT JOIN (
			SELECT raw_material_id, COALESCE(SUM(quantity_in - quantity_out), 0) AS stock
			FROM stock_movements
			WHERE raw_material_id IS NOT NULL
			GROUP BY raw_material_id
		) s ON s.raw_material_id = rm.id`).
		Where("rm.reorder_level > 0 AND COALESCE(s.stock, 0) <= rm.reorder_level").
		Count(&rawCount).Error
	if err != nil {
		return 0, err
	}

	var fgCount int64
	err = p.db.WithContext(ctx).
		Table("finished_products AS fp").
		Joins(`LEFT JOIN (
			SELECT finished_product_id, COALESCE(SUM(quantity_in - quantity_out), 0) AS stock
			FROM stock_movements
			WHERE finished_product_id IS NOT NULL
			GROUP BY finished_product_id
		) s ON s.finished_product_id = fp.id`).
		Where("fp.reorder_level > 0 AND COALESCE(s.stock, 0) <= fp.reorder_level").
		Count(&fgCount).Error
	if err != nil {
		return 0, err
	}

	return rawCount + fgCount, nil
}
