package controllers

import (
	"net/http"
	"strconv"

	"github.com/WenFra005/pipeline-API/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// QuoteController handles quote read requests
type QuoteController struct {
	db *gorm.DB
}

// NewQuoteController creates a new quote controller
func NewQuoteController(db *gorm.DB) *QuoteController {
	return &QuoteController{db: db}
}

// GetQuotes returns all stored quotes
// GET /cotacoes
func (qc *QuoteController) GetQuotes(c *gin.Context) {
	var quotes []models.CurrencyQuote

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	offset := (page - 1) * limit

	var total int64
	if err := qc.db.Model(&models.CurrencyQuote{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count quotes"})
		return
	}

	if err := qc.db.Model(&models.CurrencyQuote{}).Order("timestamp_criacao ASC").Limit(limit).Offset(offset).Find(&quotes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": quotes,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetLatestQuote returns the most recently created quote
// GET /cotacoes/latest
func (qc *QuoteController) GetLatestQuote(c *gin.Context) {
	var quote models.CurrencyQuote

	if err := qc.db.Order("timestamp_criacao DESC").First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No quotes stored yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch latest quote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// QuoteStats aggregates stored quote values
type QuoteStats struct {
	Total    int64    `json:"total"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
	AvgValue *float64 `json:"avg_value"`
}

// GetQuoteStats returns aggregate statistics over stored quotes
// GET /cotacoes/stats
func (qc *QuoteController) GetQuoteStats(c *gin.Context) {
	var stats QuoteStats

	row := qc.db.Model(&models.CurrencyQuote{}).
		Select("COUNT(*) as total, MIN(valor_de_compra) as min_value, MAX(valor_de_compra) as max_value, AVG(valor_de_compra) as avg_value").
		Row()

	if err := row.Scan(&stats.Total, &stats.MinValue, &stats.MaxValue, &stats.AvgValue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute quote stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
