package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/WenFra005/pipeline-API/models"
	"github.com/shopspring/decimal"
)

// Transformer normalizes raw quote documents into CurrencyQuote records.
// All timestamps are rendered in the configured location.
type Transformer struct {
	pairKey  string
	location *time.Location
	now      func() time.Time
}

// NewTransformer creates a transformer for the given pair (e.g. "USD-BRL")
func NewTransformer(pair string, location *time.Location) *Transformer {
	return &Transformer{
		pairKey:  strings.ReplaceAll(pair, "-", ""),
		location: location,
		now:      time.Now,
	}
}

// Normalize extracts the pair entry from the raw document and builds a
// fresh CurrencyQuote. The quote instant comes from the source's
// epoch-seconds timestamp; the creation instant is stamped here.
func (t *Transformer) Normalize(doc RawQuoteDocument) (*models.CurrencyQuote, error) {
	pair, ok := doc[t.pairKey]
	if !ok {
		return nil, fmt.Errorf("pair %q not present in quote document", t.pairKey)
	}

	value, err := decimal.NewFromString(pair.Bid)
	if err != nil {
		return nil, fmt.Errorf("invalid bid value %q: %w", pair.Bid, err)
	}

	epoch, err := strconv.ParseInt(pair.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quote timestamp %q: %w", pair.Timestamp, err)
	}

	return &models.CurrencyQuote{
		MoedaOrigem:      pair.Code,
		MoedaDestino:     pair.CodeIn,
		ValorDeCompra:    value,
		TimestampMoeda:   time.Unix(epoch, 0).In(t.location),
		TimestampCriacao: t.now().In(t.location),
	}, nil
}
