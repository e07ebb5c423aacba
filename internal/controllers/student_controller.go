package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/intervention_engine/internal/lifecycle"
	"github.com/zaqqye/intervention_engine/internal/models"
)

type StudentController struct {
	Machine *lifecycle.Machine
}

type studentView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newStudentView(s models.Student) studentView {
	return studentView{ID: s.ID, Name: s.Name, Status: s.Status, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

type registerStudentRequest struct {
	StudentID FlexibleString `json:"student_id"`
	Name      string         `json:"name"`
}

// Get returns the current state so a reconnecting client can resync.
func (sc *StudentController) Get(c *gin.Context) {
	st, err := sc.Machine.State(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":             newStudentView(st.Student),
		"pendingIntervention": st.PendingIntervention,
	})
}

func (sc *StudentController) Register(c *gin.Context) {
	var req registerStudentRequest
	if !bindJSON(c, "controllers.RegisterStudent", &req) {
		return
	}
	st, err := sc.Machine.RegisterStudent(c.Request.Context(), req.StudentID.String(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": newStudentView(st)})
}

// List backs the mentor review queue, e.g. ?status=Needs Intervention.
func (sc *StudentController) List(c *gin.Context) {
	status := models.Status(strings.TrimSpace(c.Query("status")))
	students, err := sc.Machine.ListStudents(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]studentView, 0, len(students))
	for _, s := range students {
		views = append(views, newStudentView(s))
	}
	c.JSON(http.StatusOK, gin.H{"students": views})
}

func (sc *StudentController) Logs(c *gin.Context) {
	logs, err := sc.Machine.RecentCheckIns(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.CheckInLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
