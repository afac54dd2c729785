package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cliniccare-api/internal/handler/appointment"
	"github.com/jwalitptl/cliniccare-api/internal/handler/audit"
	"github.com/jwalitptl/cliniccare-api/internal/handler/auth"
	"github.com/jwalitptl/cliniccare-api/internal/handler/card"
	"github.com/jwalitptl/cliniccare-api/internal/handler/health"
	"github.com/jwalitptl/cliniccare-api/internal/handler/patient"
	"github.com/jwalitptl/cliniccare-api/internal/handler/prometheus"
	"github.com/jwalitptl/cliniccare-api/internal/handler/report"
	"github.com/jwalitptl/cliniccare-api/internal/handler/user"
	"github.com/jwalitptl/cliniccare-api/internal/middleware"
	"github.com/jwalitptl/cliniccare-api/pkg/cardpolicy"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *health.Handler
	Metrics     *prometheus.Handler
	Auth        *auth.Handler
	User        *user.Handler
	Patient     *patient.Handler
	Card        *card.Handler
	Appointment *appointment.Handler
	Audit       *audit.Handler
	Report      *report.Handler
}

type RouterConfig struct {
	Mode           string
	Timeout        time.Duration
	MaxBodyBytes   int64
	RateLimit      *middleware.RateLimiterConfig
	CORSConfig     middleware.CORSConfig
	SecurityConfig middleware.SecurityConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.Timeout <= 0 {
		config.Timeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.SecurityHeaders(config.SecurityConfig),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}
	engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
		middleware.ErrorHandler(),
	)

	return &Router{engine: engine, auth: auth, handlers: handlers}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.handlers.Health.RegisterRoutes(api)
	if r.handlers.Metrics != nil {
		api.GET("/health/metrics", r.handlers.Metrics.Metrics)
	}
	r.handlers.Auth.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Auth.RegisterProtectedRoutes(protected)

	r.setupUserRoutes(protected.Group("/users"))
	r.setupPatientRoutes(protected.Group("/patients"))
	r.setupCardRoutes(protected)
	r.setupAppointmentRoutes(protected.Group("/appointments"))

	protected.GET("/audit-logs", r.require(cardpolicy.RoleAdmin), r.handlers.Audit.ListLogs)
	protected.GET("/reports/cards", r.require(cardManagers()...), r.handlers.Report.CardReport)
}

func (r *Router) require(roles ...cardpolicy.Role) gin.HandlerFunc {
	return r.auth.RequireRoles(roles...)
}

// cardManagers lists the roles allowed to register patients and change cards.
func cardManagers() []cardpolicy.Role {
	var roles []cardpolicy.Role
	for _, role := range cardpolicy.Roles {
		if role.CanManageCards() {
			roles = append(roles, role)
		}
	}
	return roles
}

func (r *Router) setupUserRoutes(rg *gin.RouterGroup) {
	h := r.handlers.User
	rg.POST("", r.require(cardpolicy.RoleAdmin), h.CreateUser)
	rg.GET("", r.require(cardpolicy.RoleAdmin, cardpolicy.RoleReceptionist), h.ListUsers)
	rg.GET("/:id", r.require(cardpolicy.RoleAdmin, cardpolicy.RoleReceptionist), h.GetUser)
}

// Reads are open to every role; visibility is applied per patient by the services.
func (r *Router) setupPatientRoutes(rg *gin.RouterGroup) {
	h := r.handlers.Patient
	managers := r.require(cardManagers()...)

	rg.POST("", managers, h.CreatePatient)
	rg.GET("", h.ListPatients)
	rg.GET("/search", h.SearchPatients)
	rg.GET("/:id", h.GetPatient)
	rg.PUT("/:id", managers, h.UpdatePatient)

	c := r.handlers.Card
	rg.GET("/:id/card", c.GetCard)
	rg.GET("/:id/card/payments", managers, c.ListPayments)
	rg.POST("/:id/card/activate", managers, c.Activate)
	rg.POST("/:id/card/daily", managers, c.DailyActivate)
	rg.POST("/:id/card/suspend", managers, c.Suspend)
}

func (r *Router) setupCardRoutes(rg *gin.RouterGroup) {
	h := r.handlers.Card
	rg.GET("/card-policy", h.GetPolicy)
	rg.PUT("/card-policy", r.require(cardpolicy.RoleAdmin), h.UpdatePolicy)
	rg.POST("/card-sweeps", r.require(cardpolicy.RoleAdmin), h.RunSweep)
}

func (r *Router) setupAppointmentRoutes(rg *gin.RouterGroup) {
	h := r.handlers.Appointment
	rg.POST("", r.require(cardpolicy.RoleReceptionist, cardpolicy.RoleAdmin, cardpolicy.RoleTriageOfficer), h.CreateAppointment)
	rg.GET("", h.ListAppointments)
	rg.PUT("/:id/status", r.require(cardpolicy.RoleReceptionist, cardpolicy.RoleAdmin, cardpolicy.RoleDoctor), h.UpdateStatus)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
