package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/intervention_engine/internal/lifecycle"
	"github.com/zaqqye/intervention_engine/internal/middleware"
	"github.com/zaqqye/intervention_engine/internal/models"
)

type InterventionController struct {
	Machine *lifecycle.Machine
}

type assignRequest struct {
	StudentID       FlexibleString `json:"student_id"`
	TaskDescription string         `json:"task_description"`
	MentorNotes     string         `json:"mentor_notes"`
}

type completeRequest struct {
	StudentID      FlexibleString `json:"student_id"`
	InterventionID FlexibleString `json:"intervention_id"`
}

// Assign is called once a mentor approved a remedial task, usually by the
// workflow automation that notified them.
func (ic *InterventionController) Assign(c *gin.Context) {
	var req assignRequest
	if !bindJSON(c, "controllers.AssignIntervention", &req) {
		return
	}
	assignment := lifecycle.Assignment{
		StudentID:       req.StudentID.String(),
		TaskDescription: req.TaskDescription,
		MentorNotes:     req.MentorNotes,
	}
	if claims, ok := middleware.MentorClaims(c); ok {
		assignment.AssignedBy = claims.Subject
	}
	out, err := ic.Machine.AssignIntervention(c.Request.Context(), assignment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Intervention assigned successfully",
		"status":       out.Student.Status,
		"intervention": out.Intervention,
	})
}

// Complete is sent by the student when the remedial task is done.
func (ic *InterventionController) Complete(c *gin.Context) {
	var req completeRequest
	if !bindJSON(c, "controllers.CompleteIntervention", &req) {
		return
	}
	out, err := ic.Machine.CompleteIntervention(c.Request.Context(), lifecycle.Completion{
		StudentID:      req.StudentID.String(),
		InterventionID: req.InterventionID.String(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Task completed! You are back on track.",
		"status":       models.StatusOnTrack,
		"intervention": out.Intervention,
	})
}
