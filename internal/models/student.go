package models

import (
	"time"
)

type Status string

const (
	StatusOnTrack           Status = "On Track"
	StatusNeedsIntervention Status = "Needs Intervention"
	StatusRemedialTask      Status = "Remedial Task"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnTrack, StatusNeedsIntervention, StatusRemedialTask:
		return true
	}
	return false
}

// Student is keyed by the external student id used by the client app.
type Student struct {
	ID        string `gorm:"size:64;primaryKey"`
	Name      string
	Status    Status `gorm:"size:32;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
