package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Templates and static assets are compiled into the binary.
//
//go:embed templates/*.html static
var assets embed.FS

var funcs = template.FuncMap{
	// percent renders a 0..1 ratio for a CSS width.
	"percent": func(ratio float64) string {
		return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("15:04:05")
	},
	"stamp": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
	"selected": func(a, b string) template.HTMLAttr {
		if a == b {
			return "selected"
		}
		return ""
	},
	"checked": func(on bool) template.HTMLAttr {
		if on {
			return "checked"
		}
		return ""
	},
}

// Templates parses the dashboard page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(assets, "templates/*.html")
}

// SetupStaticRoutes serves the stylesheet and favicon.
func SetupStaticRoutes(r *gin.Engine) error {
	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(staticFS))
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.FileFromFS("static/favicon.svg", http.FS(assets))
	})
	return nil
}
