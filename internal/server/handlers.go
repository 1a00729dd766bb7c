package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/batcov/internal/chart"
	"github.com/KaramelBytes/batcov/internal/prevalence"
)

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Genus   []option `json:"genus"`
	GroupBy []option `json:"group_by"`
}

type prevalenceResponse struct {
	Columns []string           `json:"columns"`
	Table   *prevalence.Table  `json:"table"`
	Summary prevalence.Summary `json:"summary"`
	Figure  chart.Figure       `json:"figure"`
}

type indexData struct {
	Options    optionsResponse
	Source     string
	Rows       int
	MinSampled int
	About      template.HTML
	References template.HTML
}

func dashboardOptions() optionsResponse {
	var out optionsResponse
	for _, g := range prevalence.GenusSelectors() {
		out.Genus = append(out.Genus, option{Value: g.String(), Label: g.Label()})
	}
	for _, f := range prevalence.GroupFields() {
		out.GroupBy = append(out.GroupBy, option{Value: f.String(), Label: f.Label()})
	}
	return out
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Options:    dashboardOptions(),
		Source:     a.ds.Source(),
		Rows:       a.ds.Rows(),
		MinSampled: a.cfg.MinSampled,
		About:      a.about,
		References: a.references,
	}
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		a.log.Error().Err(err).Msg("template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": a.ds.Rows()})
}

func (a *App) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dashboardOptions())
}

func (a *App) handlePrevalence(w http.ResponseWriter, r *http.Request) {
	tbl, err := a.aggregate(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prevalenceResponse{
		Columns: tbl.Columns(),
		Table:   tbl,
		Summary: tbl.Summary(),
		Figure:  chart.Build(tbl),
	})
}

func (a *App) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	tbl, err := a.aggregate(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderPNG(chart.Build(tbl), &buf, a.cfg.ChartWidth, a.cfg.ChartHeight); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = buf.WriteTo(w)
}

func (a *App) aggregate(r *http.Request) (*prevalence.Table, error) {
	q, err := prevalence.ParseQuery(r.URL.Query().Get("genus"), r.URL.Query().Get("by"))
	if err != nil {
		return nil, err
	}
	return prevalence.Aggregate(a.ds, q, prevalence.Options{MinSampled: a.cfg.MinSampled})
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, prevalence.ErrInvalidArgument) {
		status = http.StatusBadRequest
	} else {
		a.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
