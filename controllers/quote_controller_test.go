package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func initMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return gormDB, mock
}

func quoteRows() *sqlmock.Rows {
	quoteTime := time.Date(2023, time.November, 14, 19, 13, 20, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "moeda_origem", "moeda_destino", "valor_de_compra", "timestamp_moeda", "timestamp_criacao"}).
		AddRow(1, "USD", "BRL", "5.12", quoteTime, quoteTime.Add(time.Minute))
}

func TestGetQuotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gormDB, mock := initMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "dolar_data"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "dolar_data" ORDER BY timestamp_criacao ASC`).
		WillReturnRows(quoteRows())

	router := gin.New()
	controller := NewQuoteController(gormDB)
	router.GET("/cotacoes", controller.GetQuotes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cotacoes", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []struct {
			ID               uint   `json:"id"`
			MoedaOrigem      string `json:"moeda_origem"`
			MoedaDestino     string `json:"moeda_destino"`
			ValorDeCompra    string `json:"valor_de_compra"`
			TimestampMoeda   string `json:"timestamp_moeda"`
			TimestampCriacao string `json:"timestamp_criacao"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(body.Data))
	}

	quote := body.Data[0]
	if quote.MoedaOrigem != "USD" || quote.MoedaDestino != "BRL" {
		t.Errorf("unexpected pair %s/%s", quote.MoedaOrigem, quote.MoedaDestino)
	}
	if quote.ValorDeCompra != "5.12" {
		t.Errorf("expected valor_de_compra 5.12, got %q", quote.ValorDeCompra)
	}
	if _, err := time.Parse(time.RFC3339, quote.TimestampMoeda); err != nil {
		t.Errorf("expected ISO-8601 timestamp_moeda, got %q", quote.TimestampMoeda)
	}
	if _, err := time.Parse(time.RFC3339, quote.TimestampCriacao); err != nil {
		t.Errorf("expected ISO-8601 timestamp_criacao, got %q", quote.TimestampCriacao)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetQuotesCountError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gormDB, mock := initMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "dolar_data"`).
		WillReturnError(errors.New("connection lost"))

	router := gin.New()
	controller := NewQuoteController(gormDB)
	router.GET("/cotacoes", controller.GetQuotes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cotacoes", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 when the count fails, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetLatestQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gormDB, mock := initMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "dolar_data" ORDER BY timestamp_criacao DESC`).
		WillReturnRows(quoteRows())

	router := gin.New()
	controller := NewQuoteController(gormDB)
	router.GET("/cotacoes/latest", controller.GetLatestQuote)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cotacoes/latest", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetLatestQuoteEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gormDB, mock := initMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "dolar_data" ORDER BY timestamp_criacao DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	router := gin.New()
	controller := NewQuoteController(gormDB)
	router.GET("/cotacoes/latest", controller.GetLatestQuote)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cotacoes/latest", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 with no quotes, got %d", w.Code)
	}
}
