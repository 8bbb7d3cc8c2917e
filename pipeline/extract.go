package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PairQuote is one currency-pair entry as returned by AwesomeAPI.
type PairQuote struct {
	Code      string `json:"code"`
	CodeIn    string `json:"codein"`
	Bid       string `json:"bid"`
	Timestamp string `json:"timestamp"`
}

// RawQuoteDocument is the raw response body, keyed by pair (e.g. "USDBRL").
// The extractor does not interpret it beyond decoding; the transformer does.
type RawQuoteDocument map[string]PairQuote

// Extractor fetches the raw quote document from the remote source.
type Extractor interface {
	Fetch(ctx context.Context) (RawQuoteDocument, error)
}

// AwesomeAPIExtractor fetches currency quotes from the AwesomeAPI service
type AwesomeAPIExtractor struct {
	httpClient *http.Client
	baseURL    string
	pair       string
	token      string
}

// NewAwesomeAPIExtractor creates an extractor for the given pair (e.g. "USD-BRL")
func NewAwesomeAPIExtractor(pair, token string) *AwesomeAPIExtractor {
	return &AwesomeAPIExtractor{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://economia.awesomeapi.com.br/json/last",
		pair:    pair,
		token:   token,
	}
}

// Fetch retrieves the latest quote document for the configured pair.
// Any transport error or non-2xx status is returned as an error; the
// caller treats that as "no data" for this run.
func (e *AwesomeAPIExtractor) Fetch(ctx context.Context) (RawQuoteDocument, error) {
	url := fmt.Sprintf("%s/%s", e.baseURL, e.pair)
	if e.token != "" {
		url = fmt.Sprintf("%s?token=%s", url, e.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach quote source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("quote source returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc RawQuoteDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	return doc, nil
}
