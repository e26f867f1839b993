package http

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"personal-diary/internal/domain"
	"personal-diary/internal/session"
	"personal-diary/internal/validation"
)

//go:embed templates
var templateFS embed.FS

const layoutName = "layout"

// htmlRenderer keeps one template set per page, each sharing the layout and partials.
type htmlRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	},
	"dateInput": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(validation.DateLayout)
	},
	"join":  strings.Join,
	"moods": func() []domain.Mood { return domain.Moods },
}

func newHTMLRenderer() (*htmlRenderer, error) {
	shared := []string{"templates/layout.tmpl", "templates/partials/*.tmpl"}
	pages, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	r := &htmlRenderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".tmpl")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, append(shared, page)...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	if _, ok := r.pages["error"]; !ok {
		return nil, fmt.Errorf("error page template missing")
	}
	return r, nil
}

func (r *htmlRenderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["error"]
	}
	return render.HTML{Template: t, Name: layoutName, Data: data}
}

// render shows a page with the layout's common data: current user and pending flashes.
func (h *Handler) render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	sess := h.sessions.Get(c)
	flashes := sess.PopFlashes()
	if err := h.sessions.Save(c); err != nil {
		h.logger.WithError(err).Warn("save session")
	}

	data["Title"] = title
	data["CurrentUser"] = currentUser(c)
	data["Success"] = flashes[session.FlashSuccess]
	data["Error"] = flashes[session.FlashError]
	c.HTML(status, page, data)
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	h.render(c, status, "error", http.StatusText(status), gin.H{
		"Status":  status,
		"Message": message,
	})
}

// redirectWithFlash queues a notice for the next page and redirects there.
func (h *Handler) redirectWithFlash(c *gin.Context, location, kind, message string) {
	h.sessions.Get(c).AddFlash(kind, message)
	h.redirect(c, location)
}

func (h *Handler) redirect(c *gin.Context, location string) {
	if err := h.sessions.Save(c); err != nil {
		h.logger.WithError(err).Warn("save session")
	}
	c.Redirect(http.StatusFound, location)
}
