package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"error", "login", "dashboard",
	"agents_list", "agent_add", "agent_edit", "agent_referrer", "agent_downline", "agent_wallet",
	"clients_list", "client_add",
	"resources_list", "resource_add", "resource_view",
}

var templateFuncs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02")
	},
}

// pages holds one template set per page, each combined with the layout.
type pages map[string]*template.Template

func loadPages() (pages, error) {
	out := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render writes page with the layout. data must be a gin.H so the layout
// can add the signed-in principal.
func (h *Handler) render(c *gin.Context, code int, page string, data gin.H) {
	t, ok := h.pages[page]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown page %q", page)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	if p, ok := principalFrom(c); ok {
		data["Principal"] = p
	}
	c.Render(code, render.HTML{Template: t, Name: "layout", Data: data})
}
