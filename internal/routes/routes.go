package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/controllers"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
	"github.com/zaqqye/intervention_engine/internal/middleware"
	"github.com/zaqqye/intervention_engine/internal/store"
	"github.com/zaqqye/intervention_engine/internal/ws"
)

type Deps struct {
	Machine *lifecycle.Machine
	Store   store.Store
	Hubs    *ws.Hubs
	Log     *zap.Logger

	// FrontendURL lists the browser origins allowed by CORS.
	FrontendURL string
	// MentorJWTSecret enables bearer auth on mentor routes when set.
	MentorJWTSecret string
}

// NewRouter builds the engine with logging, recovery and CORS applied.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log), middleware.Recovery(d.Log), middleware.CORS(d.FrontendURL))
	Register(r, d)
	return r
}

func Register(r *gin.Engine, d Deps) {
	studentCtrl := &controllers.StudentController{Machine: d.Machine}
	checkInCtrl := &controllers.CheckInController{Machine: d.Machine}
	interventionCtrl := &controllers.InterventionController{Machine: d.Machine}
	healthCtrl := &controllers.HealthController{
		Store:           d.Store,
		RealtimeClients: func() int { return d.Hubs.Student.Count("") },
	}

	mentorOnly := middleware.MentorAuth(
		middleware.AuthConfig{JWTSecret: d.MentorJWTSecret},
		middleware.RoleMentor, middleware.RoleAutomation,
	)

	r.GET("/health", healthCtrl.Health)

	// Realtime
	r.GET("/ws", ws.StudentHandler(d.Hubs.Student, d.Log))
	r.GET("/ws/mentor", mentorOnly, ws.MentorHandler(d.Hubs.Mentor, d.Log))

	api := r.Group("/api")
	{
		// Student client
		api.GET("/student/:studentId", studentCtrl.Get)
		api.GET("/logs/:studentId", studentCtrl.Logs)
		api.POST("/daily-checkin", checkInCtrl.DailyCheckIn)
		api.POST("/complete-intervention", interventionCtrl.Complete)

		// Mentors and the approval workflow
		mentor := api.Group("", mentorOnly)
		{
			mentor.GET("/students", studentCtrl.List)
			mentor.POST("/students", studentCtrl.Register)
			mentor.POST("/assign-intervention", interventionCtrl.Assign)
		}
	}
}
