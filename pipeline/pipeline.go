package pipeline

import (
	"context"
	"log"

	"github.com/WenFra005/pipeline-API/models"
	"github.com/google/uuid"
)

// Outcome classifies a single pipeline run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNoData
	OutcomeTransformFailed
	OutcomePersistFailed
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoData:
		return "no_data"
	case OutcomeTransformFailed:
		return "transform_failed"
	case OutcomePersistFailed:
		return "persist_failed"
	default:
		return "unknown"
	}
}

// QuotePublisher receives quotes that were successfully persisted.
// Publishing is best-effort and never affects the run outcome.
type QuotePublisher interface {
	PublishQuote(quote *models.CurrencyQuote)
}

// Pipeline composes the extract, transform and load stages into a
// single sequential run that short-circuits at the first failing stage.
type Pipeline struct {
	extractor   Extractor
	transformer *Transformer
	loader      Loader
	publisher   QuotePublisher
}

// New creates a pipeline from its three stages
func New(extractor Extractor, transformer *Transformer, loader Loader) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
	}
}

// SetPublisher attaches an optional publisher notified after each
// successful persist.
func (p *Pipeline) SetPublisher(publisher QuotePublisher) {
	p.publisher = publisher
}

// RunOnce executes one extract-transform-load cycle. Transform is never
// invoked when Extract yields no data, and Load is never invoked when
// Transform fails, so no partial record can reach storage.
func (p *Pipeline) RunOnce(ctx context.Context) Outcome {
	runID := uuid.New().String()[:8]

	doc, err := p.extractor.Fetch(ctx)
	if err != nil {
		log.Printf("[run %s] no data extracted: %v", runID, err)
		return OutcomeNoData
	}

	quote, err := p.transformer.Normalize(doc)
	if err != nil {
		log.Printf("[run %s] transform failed: %v", runID, err)
		return OutcomeTransformFailed
	}

	if err := p.loader.Persist(ctx, quote); err != nil {
		log.Printf("[run %s] persist failed: %v", runID, err)
		return OutcomePersistFailed
	}

	if p.publisher != nil {
		p.publisher.PublishQuote(quote)
	}

	log.Printf("[run %s] quote %s/%s = %s saved (quote time %s)",
		runID,
		quote.MoedaOrigem,
		quote.MoedaDestino,
		quote.ValorDeCompra.String(),
		quote.TimestampMoeda.Format("02/01/06 15:04:05"),
	)
	return OutcomeSuccess
}
