package adapthttp

import (
	"log/slog"
	"net/http"

	"diary/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on settings. SSO routes answer 404
// unless Enabled is set.
type OIDCConfig struct {
	Enabled      bool
	OAuth2Config oauth2.Config
	Provider     *oidc.Provider
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	entries     *app.EntryService
	calendar    *app.CalendarService
	authSvc     *app.AuthService
	oidcConfig  OIDCConfig
	logger      *slog.Logger
	webDir      string
	disableAuth bool
}

// New creates a Server wired to the given application services. A nil
// logger falls back to slog.Default.
func New(es *app.EntryService, cs *app.CalendarService, as *app.AuthService, oc OIDCConfig, logger *slog.Logger, webDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		entries:    es,
		calendar:   cs,
		authSvc:    as,
		oidcConfig: oc,
		logger:     logger,
		webDir:     webDir,
	}
}

// WithoutAuth disables session checks. Used by tests.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/login", s.handleLogin)
	api.HandleFunc("/logout", s.handleLogout)
	api.HandleFunc("/setup", s.handleSetupUser)
	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	protected := http.NewServeMux()
	protected.HandleFunc("/entries", s.handleEntries)
	protected.HandleFunc("/entries/{id}", s.handleEntry)
	protected.HandleFunc("/entries/by-date/{date}", s.handleEntryByDate)
	protected.HandleFunc("/today", s.handleToday)
	protected.HandleFunc("/calendar", s.handleCalendar)
	protected.HandleFunc("/pain-color", s.handlePainColor)
	protected.HandleFunc("/me", s.handleMe)

	guarded := s.authMiddleware(protected)
	for _, p := range []string{"/entries", "/entries/", "/today", "/calendar", "/pain-color", "/me"} {
		api.Handle(p, guarded)
	}

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	return s.loggingMiddleware(withNoCache(root))
}
