package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// Sequence is the durable per-scope counter row backing document
// numbering. Rows are only ever touched through the upsert in Next.
type Sequence struct {
	Scope     string `gorm:"type:varchar(50);primaryKey"`
	Value     int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Sequence) TableName() string {
	return "sequences"
}

// GormSequenceGenerator implements shared.SequenceGenerator with an
// atomic upsert. A count-derived number would race under concurrent
// creates; the database increment cannot.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next number for the scope, starting at 1
func (g *GormSequenceGenerator) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := g.db.WithContext(ctx).Raw(`
		INSERT INTO sequences (scope, value, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (scope)
		DO UPDATE SET value = sequences.value + 1, updated_at = NOW()
		RETURNING value`, scope).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Ensure GormSequenceGenerator implements SequenceGenerator
var _ shared.SequenceGenerator = (*GormSequenceGenerator)(nil)
