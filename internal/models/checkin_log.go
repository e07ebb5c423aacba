package models

import "time"

// CheckInLog records one evaluated daily check-in. TabSwitches and TimerFailed
// are reported by the client timer and never verified.
type CheckInLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    string    `gorm:"size:64;index:idx_checkin_student_logged,priority:1" json:"student_id"`
	QuizScore    float64   `json:"quiz_score"`
	FocusMinutes float64   `json:"focus_minutes"`
	Verdict      string    `gorm:"size:8" json:"verdict"`
	TabSwitches  int       `json:"tab_switches"`
	TimerFailed  bool      `json:"timer_failed"`
	LoggedAt     time.Time `gorm:"index:idx_checkin_student_logged,priority:2" json:"logged_at"`
}
