package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ClassGroup is the roster configuration for one class and school year: the
// ordered subject labels exactly as they appear on the class's bulletins
// (comma separated) and the student display names (one per line). It is the
// source of the roster handed to every extraction submitted for the class.
type ClassGroup struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	SchoolYear string         `gorm:"type:varchar(10);not null" json:"school_year"`
	Name       string         `gorm:"type:varchar(50);not null" json:"name"`
	Subjects   string         `gorm:"type:text;not null" json:"subjects"`
	Students   string         `gorm:"type:text;not null" json:"students"`

	Analyses []Analysis `gorm:"foreignKey:ClassGroupID;constraint:OnDelete:CASCADE" json:"analyses,omitempty"`
}

// TableName specifies the table name for ClassGroup
func (ClassGroup) TableName() string {
	return "class_groups"
}

// SubjectList returns the ordered subject labels, trimmed, empty entries
// dropped.
func (c *ClassGroup) SubjectList() []string {
	return splitClean(c.Subjects, ",")
}

// StudentList returns the student display names, one per stored line.
func (c *ClassGroup) StudentList() []string {
	return splitClean(c.Students, "\n")
}

func splitClean(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
