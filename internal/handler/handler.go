package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wellcheck/internal/attendance"
	"wellcheck/internal/auth"
	"wellcheck/internal/project"
	"wellcheck/internal/report"
	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

// Attendance is implemented by *attendance.Service.
type Attendance interface {
	Policy() attendance.Policy
	Today(ctx context.Context, userID string, now time.Time) ([]attendance.Record, error)
	Eligibility(ctx context.Context, userID string, now time.Time) (attendance.Eligibility, error)
	Warning(ctx context.Context, userID string, now time.Time) (attendance.Warning, error)
	Submit(ctx context.Context, userID string, sub attendance.Submission, now time.Time) (attendance.Record, error)
	List(ctx context.Context, f attendance.Filter) ([]attendance.Record, error)
}

// Users is implemented by *user.Service.
type Users interface {
	Register(ctx context.Context, in user.RegisterInput) (user.User, error)
	Login(ctx context.Context, in user.LoginInput) (user.Session, error)
	Profile(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	List(ctx context.Context, ids ...string) ([]user.User, error)
}

// Teams is implemented by *team.Service.
type Teams interface {
	List(ctx context.Context) ([]team.Team, error)
	Get(ctx context.Context, id string) (team.Team, error)
	Create(ctx context.Context, in team.Input) (team.Team, error)
	Update(ctx context.Context, id string, in team.Input) (team.Team, error)
	Delete(ctx context.Context, id string) error
}

// Projects is implemented by *project.Service.
type Projects interface {
	List(ctx context.Context) ([]project.Detail, error)
	Get(ctx context.Context, id string) (project.Detail, error)
	Create(ctx context.Context, in project.Input) (project.Detail, error)
	Update(ctx context.Context, id string, in project.Input) (project.Detail, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the REST API.
type Handler struct {
	attendance Attendance
	users      Users
	teams      Teams
	projects   Projects
	signingKey string
	issuer     string
	now        func() time.Time
}

// New creates a handler. Tokens are verified with signingKey and issuer.
func New(att Attendance, users Users, teams Teams, projects Projects, signingKey, issuer string) *Handler {
	return &Handler{
		attendance: att,
		users:      users,
		teams:      teams,
		projects:   projects,
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
	}
}

// Register mounts every /api route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	authed := api.Group("", auth.UserAuth(h.signingKey, h.issuer))
	authed.GET("/user/profile", h.profile)
	authed.PUT("/user/profile", h.updateProfile)
	authed.GET("/users", h.listUsers)

	authed.GET("/checkins/today", h.today)
	authed.GET("/checkins/eligibility", h.eligibility)
	authed.GET("/checkins/warning", h.warning)
	authed.POST("/checkins", h.submit)
	authed.GET("/checkins", h.listCheckins)

	authed.GET("/teams", h.listTeams)
	authed.GET("/teams/:id", h.getTeam)
	authed.GET("/projects", h.listProjects)
	authed.GET("/projects/:id", h.getProject)
	authed.GET("/reports/summary", h.reportSummary)

	manager := authed.Group("", auth.RequireManager())
	manager.POST("/teams", h.createTeam)
	manager.PUT("/teams/:id", h.updateTeam)
	manager.DELETE("/teams/:id", h.deleteTeam)
	manager.POST("/projects", h.createProject)
	manager.PUT("/projects/:id", h.updateProject)
	manager.DELETE("/projects/:id", h.deleteProject)
	manager.GET("/reports/export.xlsx", h.reportExport)
}

func claims(c *gin.Context) auth.Claims {
	cl, _ := auth.ClaimsFrom(c)
	return cl
}

// writeError maps domain errors to status codes with an {"error": ...} body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case attendance.IsValidation(err),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, team.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidPeriod):
		status = http.StatusBadRequest
	case attendance.IsStale(err), errors.Is(err, user.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, team.ErrNotFound),
		errors.Is(err, project.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
