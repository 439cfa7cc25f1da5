package cron

import (
	"fmt"
	"time"

	"github.com/lmercier/bulletin-analyzer/model"
)

// CleanupOldAnalyses removes analyses older than the retention window.
// Runs daily; soft-deleted rows are purged for good.
func (m *CronManager) CleanupOldAnalyses() {
	jobName := "cleanup_old_analyses"

	if m.retentionDays <= 0 {
		m.logJobComplete(jobName, "Retention disabled, nothing to do")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)

	result := m.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.Analysis{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old analyses: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d analyses older than %d days", result.RowsAffected, m.retentionDays))
}

// CleanupCronLogs removes cron job logs older than 30 days.
func (m *CronManager) CleanupCronLogs() {
	jobName := "cleanup_cron_logs"

	cutoff := time.Now().AddDate(0, 0, -30)

	result := m.db.Unscoped().
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old cron logs: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d cron log rows older than 30 days", result.RowsAffected))
}
