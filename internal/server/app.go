package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/batcov/internal/dataset"
)

//go:embed templates/* static/* content/*
var embeddedFiles embed.FS

// Config holds dashboard settings.
type Config struct {
	Addr        string
	MinSampled  int
	ChartWidth  int
	ChartHeight int
}

// App is the prevalence dashboard. The dataset is shared read-only by all requests.
type App struct {
	router     *chi.Mux
	ds         *dataset.Dataset
	cfg        Config
	log        zerolog.Logger
	templates  *template.Template
	about      template.HTML
	references template.HTML
}

// NewApp builds the router, parses templates and renders the static tabs.
func NewApp(ds *dataset.Dataset, cfg Config, logger zerolog.Logger) (*App, error) {
	if ds == nil {
		return nil, errors.New("server: dataset is required")
	}
	if cfg.MinSampled < 0 {
		return nil, fmt.Errorf("server: invalid min sampled %d", cfg.MinSampled)
	}
	if cfg.ChartWidth <= 0 {
		cfg.ChartWidth = 900
	}
	if cfg.ChartHeight <= 0 {
		cfg.ChartHeight = 500
	}
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	about, err := renderMarkdown("content/about.md")
	if err != nil {
		return nil, err
	}
	refs, err := renderMarkdown("content/references.md")
	if err != nil {
		return nil, err
	}

	a := &App{
		router:     chi.NewRouter(),
		ds:         ds,
		cfg:        cfg,
		log:        logger,
		templates:  templates,
		about:      about,
		references: refs,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(requestLogger(a.log))
	a.router.Use(middleware.Recoverer)
}

func (a *App) setupRoutes() {
	static, _ := fs.Sub(embeddedFiles, "static")
	a.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	a.router.Get("/", a.handleIndex)
	a.router.Get("/healthz", a.handleHealthz)
	a.router.Get("/chart.png", a.handleChartPNG)
	a.router.Route("/api", func(r chi.Router) {
		r.Get("/options", a.handleOptions)
		r.Get("/prevalence", a.handlePrevalence)
	})
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Int("rows", a.ds.Rows()).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.log.Info().Msg("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	}
}

func renderMarkdown(name string) (template.HTML, error) {
	src, err := embeddedFiles.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	return template.HTML(bytes.TrimSpace(markdown.ToHTML(src, p, r))), nil
}
