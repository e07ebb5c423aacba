package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterventionStatus string

const (
	InterventionPending   InterventionStatus = "Pending"
	InterventionCompleted InterventionStatus = "Completed"
)

// Intervention is a remedial task a mentor assigns after a failed check-in.
type Intervention struct {
	ID              string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID       string             `gorm:"size:64;index:idx_intervention_student_status,priority:1" json:"student_id"`
	TaskDescription string             `gorm:"type:text" json:"task_description"`
	MentorNotes     string             `gorm:"type:text" json:"mentor_notes"`
	// AssignedBy is the verified token subject, empty when mentor auth is off.
	AssignedBy      string             `gorm:"size:128" json:"assigned_by,omitempty"`
	Status          InterventionStatus `gorm:"size:16;index:idx_intervention_student_status,priority:2" json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

func (i *Intervention) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
