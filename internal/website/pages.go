package website

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/auth"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Pages renders the HTML shells. Page content is driven by the JSON API,
// the templates only carry the session identity.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
	}

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Pages{tmpl: tmpl}, nil
}

// Handler returns the page routes. It must be wrapped by the site guard so that
// every page except /login and /static/ has an identity in its context.
func (p *Pages) Handler() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.Handle("GET /{$}", http.RedirectHandler("/tasks", http.StatusFound))
	mux.HandleFunc("GET /login", p.render("login.html", "Sign in", nil))
	mux.HandleFunc("GET /tasks", p.render("tasks.html", "My tasks", identityContext))
	mux.Handle("GET /admin/dashboard", requireAdmin(p.render("dashboard.html", "Admin dashboard", identityContext)))

	return mux
}

// render returns a handler executing templateName with the title and the value of contextFn.
func (p *Pages) render(templateName, title string, contextFn func(ctx context.Context) any) http.HandlerFunc {
	if contextFn == nil {
		contextFn = func(ctx context.Context) any {
			return nil
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"Title":   title,
			"Context": contextFn(r.Context()),
		}

		var buf bytes.Buffer
		if err := p.tmpl.ExecuteTemplate(&buf, templateName, data); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("template", templateName).Msg("Failed to render template")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

// requireAdmin sends non admins back to their own task page.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			http.Redirect(w, r, "/tasks", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityContext(ctx context.Context) any {
	identity, _ := auth.IdentityFromContext(ctx)
	return identity
}

func marshal(value any) (template.JS, error) {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		return "", errors.New("context can only be json serializable")
	}

	return template.JS(buf.String()), nil //nolint:gosec
}
