package scheduler

import (
	"log"
	"time"

	"github.com/WenFra005/pipeline-API/models"
	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// MaintenanceScheduler manages periodic housekeeping jobs that run
// independently of the pipeline loop.
type MaintenanceScheduler struct {
	cron          *gocron.Scheduler
	db            *gorm.DB
	retentionDays int
}

// NewMaintenanceScheduler creates a maintenance scheduler in the given timezone
func NewMaintenanceScheduler(db *gorm.DB, location *time.Location, retentionDays int) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:          gocron.NewScheduler(location),
		db:            db,
		retentionDays: retentionDays,
	}
}

// Start starts all maintenance jobs
func (m *MaintenanceScheduler) Start() {
	// Cleanup old quotes weekly on Sunday at 01:00
	m.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		m.cleanupOldQuotes()
	})

	m.cron.StartAsync()
	log.Println("Maintenance scheduler started")
}

// Stop stops the maintenance scheduler
func (m *MaintenanceScheduler) Stop() {
	m.cron.Stop()
	log.Println("Maintenance scheduler stopped")
}

// cleanupOldQuotes removes quotes past the retention period
func (m *MaintenanceScheduler) cleanupOldQuotes() {
	log.Println("Cleaning up old quotes...")

	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)
	result := m.db.Where("timestamp_criacao < ?", cutoff).Delete(&models.CurrencyQuote{})
	if result.Error != nil {
		log.Printf("Error cleaning up old quotes: %v", result.Error)
		return
	}

	log.Printf("Cleanup completed, removed %d quotes older than %d days", result.RowsAffected, m.retentionDays)
}
