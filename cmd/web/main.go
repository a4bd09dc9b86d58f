package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/crucial707/cinebrowse/internal/auth"
	"github.com/crucial707/cinebrowse/internal/catalog"
	"github.com/crucial707/cinebrowse/internal/config"
	"github.com/crucial707/cinebrowse/internal/middleware"
	"github.com/crucial707/cinebrowse/internal/models"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

//go:embed templates
var templatesFS embed.FS

const (
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "WEB_PORT"
	envAPIURL   = "CINEBROWSE_API_URL"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogFormat)

	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	s, err := newServer(
		newAPIClient(apiBase, 10*time.Second),
		catalog.New(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.CatalogTimeout),
		cfg.CookieSecure,
	)
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.routes(cfg.TLSEnabled()),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting web server", "addr", srv.Addr, "api", apiBase)
	if cfg.TLSEnabled() {
		err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(format string) {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type server struct {
	api     *apiClient
	catalog *catalog.Client
	secure  bool
	pages   map[string]*template.Template
}

func newServer(api *apiClient, cat *catalog.Client, secureCookie bool) (*server, error) {
	funcs := template.FuncMap{
		"img": catalog.ImageURL,
		"year": func(date string) string {
			if len(date) >= 4 {
				return date[:4]
			}
			return date
		},
		"rating": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"login.html", "signup.html", "browse.html"} {
		t, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &server{api: api, catalog: cat, secure: secureCookie, pages: pages}, nil
}

func (s *server) routes(hsts bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders(hsts, middleware.WebContentSecurityPolicy))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/browse", http.StatusFound)
	})
	r.Get("/login", s.loginForm)
	r.Post("/login", s.loginSubmit)
	r.Get("/signup", s.signupForm)
	r.Post("/signup", s.signupSubmit)
	r.Post("/logout", s.logout)
	r.Get("/browse", s.browse)
	return r
}

func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		slog.ErrorContext(r.Context(), "template execute failed",
			"request_id", chimw.GetReqID(r.Context()),
			"template", name,
			"error", err)
	}
}

func sessionValue(r *http.Request) string {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// relaySession copies the API's session cookie onto the browser response.
func (s *server) relaySession(w http.ResponseWriter, c *http.Cookie) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    c.Value,
		Path:     "/",
		MaxAge:   c.MaxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ==========================
// Login / Signup
// ==========================

type formPage struct {
	Title  string
	Error  string
	Values map[string]string
}

func (s *server) loginForm(w http.ResponseWriter, r *http.Request) {
	if sessionValue(r) != "" {
		http.Redirect(w, r, "/browse", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", formPage{Title: "Sign in"})
}

func (s *server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	page := formPage{Title: "Sign in", Values: map[string]string{"username": username}}

	res, err := s.api.do(r.Context(), http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": r.PostFormValue("password"),
	}, "", browserIP(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "login request failed", "request_id", chimw.GetReqID(r.Context()), "error", err)
		page.Error = "Cannot reach the server. Try again."
		s.render(w, r, http.StatusBadGateway, "login.html", page)
		return
	}
	if res.status != http.StatusOK || res.session == nil {
		page.Error = res.errorMessage()
		s.render(w, r, http.StatusOK, "login.html", page)
		return
	}

	s.relaySession(w, res.session)
	http.Redirect(w, r, "/browse", http.StatusSeeOther)
}

var signupFields = []string{"username", "name", "email", "mobile", "externalId"}

func (s *server) signupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup.html", formPage{Title: "Create account"})
}

func (s *server) signupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	page := formPage{Title: "Create account", Values: map[string]string{}}
	payload := map[string]string{"password": r.PostFormValue("password")}
	for _, f := range signupFields {
		v := strings.TrimSpace(r.PostFormValue(f))
		payload[f] = v
		page.Values[f] = v
	}

	res, err := s.api.do(r.Context(), http.MethodPost, "/auth/signup", payload, "", browserIP(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "signup request failed", "request_id", chimw.GetReqID(r.Context()), "error", err)
		page.Error = "Cannot reach the server. Try again."
		s.render(w, r, http.StatusBadGateway, "signup.html", page)
		return
	}
	if res.status != http.StatusCreated || res.session == nil {
		page.Error = res.errorMessage()
		s.render(w, r, http.StatusOK, "signup.html", page)
		return
	}

	s.relaySession(w, res.session)
	http.Redirect(w, r, "/browse", http.StatusSeeOther)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if session := sessionValue(r); session != "" {
		if _, err := s.api.do(r.Context(), http.MethodPost, "/auth/logout", nil, session, browserIP(r)); err != nil {
			slog.WarnContext(r.Context(), "logout request failed", "request_id", chimw.GetReqID(r.Context()), "error", err)
		}
	}
	s.clearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ==========================
// Browse
// ==========================

type movieRow struct {
	Title  string
	Movies []models.Movie
}

type browsePage struct {
	Title    string
	User     *models.User
	Featured *models.Movie
	Rows     []movieRow
	Selected *models.Movie
	Error    string
}

func (s *server) browse(w http.ResponseWriter, r *http.Request) {
	session := sessionValue(r)
	if session == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var (
		user       *models.User
		rows       *catalog.Rows
		catalogErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		user, err = s.api.me(ctx, session, browserIP(r))
		return err
	})
	g.Go(func() error {
		rows, catalogErr = s.catalog.Browse(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "browse failed", "request_id", chimw.GetReqID(r.Context()), "error", err)
		http.Error(w, "service unavailable", http.StatusBadGateway)
		return
	}
	if user == nil {
		s.clearSession(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	page := browsePage{Title: "Browse", User: user}
	if catalogErr != nil {
		slog.WarnContext(r.Context(), "catalog unavailable", "request_id", chimw.GetReqID(r.Context()), "error", catalogErr)
		page.Error = "Movies could not be loaded right now."
		rows = &catalog.Rows{}
	}
	page.Featured = rows.Featured()
	page.Rows = []movieRow{
		{Title: "Trending Now", Movies: rows.Trending},
		{Title: "Top Rated", Movies: rows.TopRated},
		{Title: "Popular", Movies: rows.Popular},
	}
	if id, err := strconv.Atoi(r.URL.Query().Get("movie")); err == nil {
		page.Selected = rows.Find(id)
	}

	s.render(w, r, http.StatusOK, "browse.html", page)
}
