package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventhub/internal/delivery/http/controllers"
	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// RouterConfig carries the controllers and the collaborators of the auth chain.
type RouterConfig struct {
	Users      *controllers.UserController
	Roles      *controllers.RoleController
	Events     *controllers.EventController
	Sessions   *controllers.SessionController
	Assistants *controllers.AssistantController

	Verifier     domain.TokenVerifier
	ActiveUsers  middleware.ActiveChecker
	LoginLimiter *middleware.RateLimiter
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter initializes the HTTP router with all application routes.
// Every API route except login passes RequireAuth and then RequirePermission for its resource.verb.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.ActiveUsers, cfg.Logger)
	gate := func(resource, verb string, next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequirePermission(resource, verb, cfg.Logger)(next))
	}

	// Auth
	login := cfg.Users.Login
	if cfg.LoginLimiter != nil {
		login = cfg.LoginLimiter.Limit(login)
	}
	mux.HandleFunc("POST /auth/login", login)

	// Users
	mux.HandleFunc("GET /users/me", gate(domain.ResourceUser, domain.VerbGet, cfg.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", gate(domain.ResourceUser, domain.VerbUpdateMe, cfg.Users.UpdateMe))
	mux.HandleFunc("POST /users/me/password", gate(domain.ResourceUserPassword, domain.VerbChangeMe, cfg.Users.ChangePassword))
	mux.HandleFunc("POST /users", gate(domain.ResourceUser, domain.VerbCreate, cfg.Users.CreateUser))
	mux.HandleFunc("GET /users", gate(domain.ResourceUser, domain.VerbList, cfg.Users.ListUsers))
	mux.HandleFunc("GET /users/{userID}", gate(domain.ResourceUser, domain.VerbGet, cfg.Users.GetUser))
	mux.HandleFunc("PATCH /users/{userID}", gate(domain.ResourceUser, domain.VerbUpdate, cfg.Users.UpdateUser))
	mux.HandleFunc("DELETE /users/{userID}", gate(domain.ResourceUser, domain.VerbDelete, cfg.Users.DeactivateUser))

	// Roles
	mux.HandleFunc("GET /roles", gate(domain.ResourceRoles, domain.VerbList, cfg.Roles.ListRoles))
	mux.HandleFunc("GET /roles/{slug}", gate(domain.ResourceRoles, domain.VerbGet, cfg.Roles.GetRole))
	mux.HandleFunc("POST /roles", gate(domain.ResourceRoles, domain.VerbCreate, cfg.Roles.CreateRole))
	mux.HandleFunc("PUT /roles/{slug}/permissions", gate(domain.ResourceRoles, domain.VerbUpdate, cfg.Roles.ReplacePermissions))

	// Events
	mux.HandleFunc("POST /events", gate(domain.ResourceEvents, domain.VerbCreate, cfg.Events.CreateEvent))
	mux.HandleFunc("GET /events", gate(domain.ResourceEvents, domain.VerbList, cfg.Events.ListEvents))
	mux.HandleFunc("GET /events/search", gate(domain.ResourceEvents, domain.VerbList, cfg.Events.SearchEvents))
	mux.HandleFunc("GET /events/{eventID}", gate(domain.ResourceEvents, domain.VerbGet, cfg.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", gate(domain.ResourceEvents, domain.VerbUpdate, cfg.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", gate(domain.ResourceEvents, domain.VerbDelete, cfg.Events.DeleteEvent))

	// Sessions
	mux.HandleFunc("POST /events/{eventID}/sessions", gate(domain.ResourceSessions, domain.VerbCreate, cfg.Sessions.CreateSession))
	mux.HandleFunc("GET /events/{eventID}/sessions", gate(domain.ResourceSessions, domain.VerbList, cfg.Sessions.ListSessions))
	mux.HandleFunc("GET /sessions/{sessionID}", gate(domain.ResourceSessions, domain.VerbGet, cfg.Sessions.GetSession))
	mux.HandleFunc("PATCH /sessions/{sessionID}", gate(domain.ResourceSessions, domain.VerbUpdate, cfg.Sessions.UpdateSession))
	mux.HandleFunc("DELETE /sessions/{sessionID}", gate(domain.ResourceSessions, domain.VerbDelete, cfg.Sessions.DeleteSession))

	// Assistants
	mux.HandleFunc("POST /events/{eventID}/assistants", gate(domain.ResourceAssistants, domain.VerbCreate, cfg.Assistants.CreateAssistant))
	mux.HandleFunc("GET /events/{eventID}/assistants", gate(domain.ResourceAssistants, domain.VerbList, cfg.Assistants.ListAssistants))
	mux.HandleFunc("GET /assistants/{assistantID}", gate(domain.ResourceAssistants, domain.VerbGet, cfg.Assistants.GetAssistant))
	mux.HandleFunc("PATCH /assistants/{assistantID}", gate(domain.ResourceAssistants, domain.VerbUpdate, cfg.Assistants.UpdateAssistant))
	mux.HandleFunc("DELETE /assistants/{assistantID}", gate(domain.ResourceAssistants, domain.VerbDelete, cfg.Assistants.DeleteAssistant))

	// Ops
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
