package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lmercier/bulletin-analyzer/services/bulletin"
)

// Analysis is the durable record of one finished bulletin analysis: the
// generated assessment and its justifications, plus the structured parse data
// they were produced from. Rows outlive the job runtime and feed the history
// views; the retention cron prunes them after the configured window.
type Analysis struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	JobID         string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"job_id"`
	StudentName   string         `gorm:"type:varchar(200);not null" json:"student_name"`
	Assessment    string         `gorm:"type:text" json:"assessment"`
	Justification string         `gorm:"type:text" json:"justification"`
	RawData       datatypes.JSON `gorm:"type:jsonb" json:"raw_data,omitempty"`
	ClassGroupID  *uint          `gorm:"index" json:"class_group_id,omitempty"`

	ClassGroup *ClassGroup `gorm:"foreignKey:ClassGroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Analysis
func (Analysis) TableName() string {
	return "analyses"
}

// AnalysisOutcome is the terminal result of one job, persisted in the result
// store keyed by job id. Exactly one of the two shapes is populated: a
// success carries the parse result and both generated texts (Justification
// may be empty, never absent semantically), a failure carries ErrorSummary.
type AnalysisOutcome struct {
	JobID         string                `json:"job_id"`
	StudentName   string                `json:"student_name"`
	ParseResult   *bulletin.ParseResult `json:"parse_result,omitempty"`
	Assessment    string                `json:"assessment"`
	Justification string                `json:"justification"`
	ErrorSummary  string                `json:"error_summary,omitempty"`
	CompletedAt   time.Time             `json:"completed_at"`
}

// Failed reports whether the outcome records a failed job.
func (o *AnalysisOutcome) Failed() bool {
	return o.ErrorSummary != ""
}

// Redis key patterns for analysis job outcomes
const (
	// RedisKeyAnalysisOutcome stores the terminal AnalysisOutcome as JSON
	// Usage: fmt.Sprintf(RedisKeyAnalysisOutcome, jobID)
	RedisKeyAnalysisOutcome = "analysis:outcome:%s"
)
