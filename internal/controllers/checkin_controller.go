package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/intervention_engine/internal/compliance"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
	"github.com/zaqqye/intervention_engine/internal/models"
)

const (
	msgOnTrack        = "Great job! Keep it up!"
	msgNeedsAttention = "Your performance needs attention. A mentor will review shortly."
	msgRemedialLocked = "Complete your assigned task to resume daily check-ins."
)

type CheckInController struct {
	Machine *lifecycle.Machine
}

type checkInRequest struct {
	StudentID    FlexibleString  `json:"student_id"`
	QuizScore    *FlexibleNumber `json:"quiz_score"`
	FocusMinutes *FlexibleNumber `json:"focus_minutes"`
	// advisory client telemetry, never verified
	TabSwitches int  `json:"tab_switches"`
	TimerFailed bool `json:"timer_failed"`
}

type checkInResponse struct {
	Status  models.Status      `json:"status"`
	Message string             `json:"message"`
	Verdict compliance.Verdict `json:"verdict"`
	Changed bool               `json:"changed"`
	Logged  bool               `json:"logged"`
}

// DailyCheckIn runs the pass/fail gate for one daily submission.
func (cc *CheckInController) DailyCheckIn(c *gin.Context) {
	var req checkInRequest
	if !bindJSON(c, "controllers.DailyCheckIn", &req) {
		return
	}

	out, err := cc.Machine.SubmitCheckIn(c.Request.Context(), compliance.Submission{
		StudentID:    req.StudentID.String(),
		QuizScore:    req.QuizScore.Float(),
		FocusMinutes: req.FocusMinutes.Float(),
		TabSwitches:  req.TabSwitches,
		TimerFailed:  req.TimerFailed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkInResponse{
		Status:  out.Student.Status,
		Message: checkInMessage(out.Student.Status),
		Verdict: out.Verdict,
		Changed: out.Changed,
		Logged:  out.Logged,
	})
}

func checkInMessage(s models.Status) string {
	switch s {
	case models.StatusNeedsIntervention:
		return msgNeedsAttention
	case models.StatusRemedialTask:
		return msgRemedialLocked
	default:
		return msgOnTrack
	}
}
