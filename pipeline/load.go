package pipeline

import (
	"context"
	"fmt"

	"github.com/WenFra005/pipeline-API/models"
	"gorm.io/gorm"
)

// Loader persists a normalized quote. A call is all-or-nothing: on
// failure no partial state may remain in storage.
type Loader interface {
	Persist(ctx context.Context, quote *models.CurrencyQuote) error
}

// GormLoader persists quotes to PostgreSQL through GORM
type GormLoader struct {
	db *gorm.DB
}

// NewGormLoader creates a new GORM-backed loader
func NewGormLoader(db *gorm.DB) *GormLoader {
	return &GormLoader{db: db}
}

// Persist inserts the quote inside a transaction so a failed insert
// leaves nothing behind. The connection is scoped to this call.
func (l *GormLoader) Persist(ctx context.Context, quote *models.CurrencyQuote) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(quote).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}
