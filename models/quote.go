package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CurrencyQuote represents one persisted exchange-rate observation.
// Field names follow the public read-endpoint contract.
type CurrencyQuote struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	MoedaOrigem      string          `gorm:"type:varchar(3);not null" json:"moeda_origem"`
	MoedaDestino     string          `gorm:"type:varchar(3);not null" json:"moeda_destino"`
	ValorDeCompra    decimal.Decimal `gorm:"type:decimal(15,6);not null" json:"valor_de_compra"`
	TimestampMoeda   time.Time       `gorm:"type:timestamptz;not null" json:"timestamp_moeda"`
	TimestampCriacao time.Time       `gorm:"type:timestamptz;not null" json:"timestamp_criacao"`
}

// TableName keeps the table name used by the original schema
func (CurrencyQuote) TableName() string {
	return "dolar_data"
}

// MigrateQuoteModels runs database migrations for quote-related models
func MigrateQuoteModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&CurrencyQuote{},
	)
}
