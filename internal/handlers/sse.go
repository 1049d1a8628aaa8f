package handlers

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"shipdash/internal/store"
)

const maxTableRows = 50

var companiesTableTemplate = template.Must(template.New("companiesTable").Parse(`
<div id="companies-content">
<table class="modern-table">
<thead><tr><th>Company</th><th>Country</th><th>Shipments</th><th>Weight (kg)</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Name}}</td>
<td><span class="country-badge">{{.Country}}</span></td>
<td>{{.Shipments}}</td>
<td><strong>{{.WeightKG}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var commoditiesTemplate = template.Must(template.New("commodities").Parse(`
<div id="commodities-content">
<ol class="ranking-list">
{{range .}}<li>{{.Commodity}} <span class="weight">{{.WeightKG}} kg</span></li>
{{end}}</ol>
</div>`))

var monthlyVolumeTemplate = template.Must(template.New("monthlyVolume").Parse(`
<div id="monthly-content">
<table class="modern-table">
<thead><tr><th>Month</th><th>Volume (kg)</th></tr></thead>
<tbody>
{{range .}}<tr><td>{{.Month}}</td><td>{{.WeightKG}}</td></tr>
{{end}}</tbody>
</table>
</div>`))

var statsCardsTemplate = template.Must(template.New("statsCards").Parse(`
<div id="stats-content">
<div class="stat-card"><span class="stat-value">{{.Importers}}</span><span class="stat-label">Importers</span></div>
<div class="stat-card"><span class="stat-value">{{.Exporters}}</span><span class="stat-label">Exporters</span></div>
</div>`))

type SSEHandlers struct {
	store  *store.Store
	logger *slog.Logger
}

func NewSSEHandlers(st *store.Store, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		store:  st,
		logger: logger,
	}
}

func renderFragment(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func (h *SSEHandlers) patch(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	sse := datastar.NewSSE(w, r)

	html, err := renderFragment(tmpl, data)
	if err != nil {
		h.logger.Error("render dashboard fragment", "fragment", tmpl.Name(), "error", err)
		return
	}

	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, _, err := h.store.ListCompanies(r.Context(), maxTableRows, 0, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("load companies for dashboard", "error", err)
		http.Error(w, "failed to load companies", http.StatusInternalServerError)
		return
	}
	h.patch(w, r, companiesTableTemplate, companies)
}

func (h *SSEHandlers) HandleTopCommodities(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("load commodities for dashboard", "error", err)
		http.Error(w, "failed to load commodities", http.StatusInternalServerError)
		return
	}
	h.patch(w, r, commoditiesTemplate, snapshot.TopCommodities)
}

func (h *SSEHandlers) HandleMonthlyVolume(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("load monthly volume for dashboard", "error", err)
		http.Error(w, "failed to load monthly volume", http.StatusInternalServerError)
		return
	}
	h.patch(w, r, monthlyVolumeTemplate, snapshot.MonthlyVolume)
}

func (h *SSEHandlers) HandleStatsCards(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("load stats for dashboard", "error", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	h.patch(w, r, statsCardsTemplate, snapshot)
}

// HandleRefreshAll pushes every dashboard fragment over a single SSE stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	companies, _, err := h.store.ListCompanies(r.Context(), maxTableRows, 0, "")
	if err != nil {
		h.logger.Error("refresh companies", "error", err)
		return
	}
	snapshot, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("refresh stats", "error", err)
		return
	}

	fragments := []struct {
		tmpl *template.Template
		data any
	}{
		{companiesTableTemplate, companies},
		{commoditiesTemplate, snapshot.TopCommodities},
		{monthlyVolumeTemplate, snapshot.MonthlyVolume},
		{statsCardsTemplate, snapshot},
	}
	for _, f := range fragments {
		html, err := renderFragment(f.tmpl, f.data)
		if err != nil {
			h.logger.Error("render dashboard fragment", "fragment", f.tmpl.Name(), "error", err)
			return
		}
		sse.PatchElements(html)
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
