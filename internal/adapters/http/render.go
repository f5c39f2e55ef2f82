package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"investhub/internal/adapters/http/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}

// markdownHTML renders md to sanitized HTML, falling back to escaped text.
func markdownHTML(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// renderTemplate renders a page inside layout.html with status 200.
func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

// renderTemplateStatus renders a page inside layout.html.
// PRE: templateName names a file under templates/
// POST: the page is written in full or a 500 is returned; nothing partial
func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"isLoggedIn":     func() bool { return loggedIn },
		"isAdmin":        func() bool { return loggedIn && middleware.IsAdmin(r.Context()) },
		"currentName":    func() string { return sess.Name },
		"currentEmail":   func() string { return sess.Email },
		"csrfField":      func() template.HTML { return csrf.TemplateField(r) },
		"csrfToken":      func() string { return csrf.Token(r) },
		"collections":    catalog,
		"renderMarkdown": markdownHTML,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 January 2006")
		},
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError renders the shared error page.
func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderTemplateStatus(w, r, status, "error.html", map[string]any{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": message,
	})
}
