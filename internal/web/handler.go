package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/models"
	"github.com/timernudge/timernudge/internal/reporter"
	"github.com/timernudge/timernudge/internal/scheduler"
	"github.com/timernudge/timernudge/internal/settings"
)

// Controller is the part of the scheduler the API drives.
type Controller interface {
	Status() scheduler.Status
	CheckNow(ctx context.Context) scheduler.Status
	SnoozeUntil(until time.Time)
	ClearSnooze()
}

type Handler struct {
	ctrl     Controller
	reporter *reporter.Reporter
	settings settings.Source
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates the API handler. A nil logger discards output.
func NewHandler(ctrl Controller, rep *reporter.Reporter, src settings.Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ctrl:     ctrl,
		reporter: rep,
		settings: src,
		logger:   logger,
		now:      time.Now,
	}
}

// SetupRoutes registers the API, health, metrics and dashboard routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/check", sameOriginOnly(h.handleCheck))
	mux.HandleFunc("/api/snooze", sameOriginOnly(h.handleSnooze))
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/settings", h.handleSettings)

	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", h.handleIndex)
}

// sameOriginOnly refuses state-changing requests sent by another site's page.
// A form POST needs no CORS preflight, so the browser's fetch metadata and
// Origin header are the only signal. Non-browser clients send neither.
func sameOriginOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead && crossSite(r) {
			http.Error(w, "Cross-site request refused", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func crossSite(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "":
	case "same-origin", "none":
		return false
	default:
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return true
	}
	return !strings.EqualFold(u.Host, r.Host)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.respondStatus(w, r, h.ctrl.Status())
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.respondStatus(w, r, h.ctrl.CheckNow(r.Context()))
}

// handleSnooze: POST with "for" (duration, clock time or RFC3339) snoozes,
// DELETE clears.
func (h *Handler) handleSnooze(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		arg := r.FormValue("for")
		until, err := scheduler.ParseSnooze(arg, h.now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.ctrl.SnoozeUntil(until)
	case http.MethodDelete:
		h.ctrl.ClearSnooze()
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.respondStatus(w, r, h.ctrl.Status())
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	period := query.Get("period")
	if period == "" {
		period = "day"
	}
	limit := reporter.DefaultLimit
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = l
	}

	report, err := h.reporter.WithLimit(limit).GenerateReport(period)
	if err != nil {
		if errors.Is(err, reporter.ErrInvalidPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Warn("history report failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	if isHTMX(r) {
		respondHTML(w, historyHTML(report))
		return
	}
	respondJSON(w, report)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, h.settings.Snapshot())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, st scheduler.Status) {
	if isHTMX(r) {
		respondHTML(w, statusHTML(st))
		return
	}
	respondJSON(w, st)
}

func statusHTML(st scheduler.Status) string {
	var b strings.Builder

	state := string(st.State)
	if st.SnoozeLabel != "" {
		state = st.SnoozeLabel
	}
	row := func(label, value string) {
		fmt.Fprintf(&b, `<div class="app-item"><span class="app-name">%s</span><span class="app-time">%s</span></div>`,
			label, html.EscapeString(value))
	}

	b.WriteString(`<div class="listing">`)
	row("Reminders", state)
	row("Frontmost app", st.FrontmostApp)
	row("Working", yesNo(st.ActiveWorkContext))
	row("Timer running", yesNo(st.TimerRunning))
	if !st.Running {
		row("Scheduler", "stopped")
	}
	b.WriteString(`</div>`)

	fmt.Fprintf(&b, `<div class="total">%s</div>`, html.EscapeString(st.LastCheckMessage))
	if st.LastError != "" {
		fmt.Fprintf(&b, `<div class="error">%s</div>`, html.EscapeString(st.LastError))
	}
	return b.String()
}

func historyHTML(report *models.HistoryReport) string {
	if len(report.Records) == 0 {
		return `<div class="loading">No checks recorded</div>`
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, rec := range report.Records {
		what := rec.Decision
		if rec.ErrorCode != "" {
			what = rec.ErrorCode
		}
		fmt.Fprintf(&b, `
		<div class="app-item">
			<span class="app-name">%s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-percentage">%s</span>
			</div>
		</div>`,
			rec.Timestamp.Local().Format("15:04:05"),
			html.EscapeString(rec.FrontmostApp),
			html.EscapeString(what))
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Reminders: %d, errors: %d</div>`, report.Notifications, report.Errors)
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	respondHTML(w, dashboardHTML)
}

func respondHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>timernudge</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --accent-color: #3498db;
            --heading-color: #2c3e50;
            --error-color: #c0392b;
        }

        [data-theme="dark"] {
            --bg-primary: #1a1a1a;
            --bg-secondary: #2d2d2d;
            --text-primary: #e0e0e0;
            --text-muted: #a0a0a0;
            --border-color: #404040;
            --accent-color: #5dade2;
            --heading-color: #5dade2;
            --error-color: #e74c3c;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
        }

        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 30px; }
        .controls { display: flex; gap: 10px; flex-wrap: wrap; }
        .btn {
            background: var(--bg-secondary);
            color: var(--text-primary);
            border: 2px solid var(--border-color);
            border-radius: 50px;
            padding: 8px 16px;
            cursor: pointer;
        }
        .btn:hover { border-color: var(--accent-color); }

        .dashboard { display: flex; gap: 20px; flex-wrap: wrap; }
        .report-box {
            flex: 1;
            min-width: 300px;
            background: var(--bg-secondary);
            border-radius: 8px;
            padding: 24px;
        }
        .report-box h2 {
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
            margin-bottom: 20px;
        }

        .app-item {
            display: flex;
            justify-content: space-between;
            padding: 12px 8px;
            border-bottom: 1px solid var(--border-color);
        }
        .app-name { font-weight: 500; }
        .app-time { color: var(--text-muted); }
        .app-percentage { color: var(--accent-color); font-weight: 600; margin-left: 10px; }
        .listing { overflow-y: auto; max-height: calc(100vh - 320px); }
        .loading { color: var(--text-muted); font-style: italic; }
        .total { margin-top: 20px; font-weight: 600; color: var(--heading-color); }
        .error { margin-top: 10px; color: var(--error-color); }
    </style>
</head>
<body>
    <div class="header">
        <h1>timernudge</h1>
        <div class="controls">
            <button class="btn" hx-post="/api/check" hx-target="#status">Check now</button>
            <button class="btn" hx-post="/api/snooze" hx-vals='{"for": "15m"}' hx-target="#status">Snooze 15m</button>
            <button class="btn" hx-post="/api/snooze" hx-vals='{"for": "1h"}' hx-target="#status">Snooze 1h</button>
            <button class="btn" hx-delete="/api/snooze" hx-target="#status">Resume</button>
            <button class="btn" onclick="toggleTheme()" title="Toggle theme">Theme</button>
        </div>
    </div>
    <div class="dashboard">
        <div class="report-box">
            <h2>Status</h2>
            <div id="status" hx-get="/api/status" hx-trigger="load, every 5s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>Today</h2>
            <div hx-get="/api/history?period=day" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
    </div>
    <script>
        function setTheme(theme) {
            document.documentElement.setAttribute('data-theme', theme);
            localStorage.setItem('theme', theme);
        }

        function toggleTheme() {
            const current = document.documentElement.getAttribute('data-theme');
            setTheme(current === 'dark' ? 'light' : 'dark');
        }

        const prefersDark = window.matchMedia('(prefers-color-scheme: dark)').matches;
        setTheme(localStorage.getItem('theme') || (prefersDark ? 'dark' : 'light'));
    </script>
</body>
</html>`
