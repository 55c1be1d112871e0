package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/metrics"
)

const (
	viewCookie = "scarletdash_view"
	viewKey    = "view"
)

// viewCache keeps one program list per browser. The least recently used
// view is dropped once the cache is full; that browser starts over with a
// fresh list on its next request.
type viewCache struct {
	backend dashboard.ProgramBackend
	opts    dashboard.Options

	mu    sync.Mutex // serializes get-or-create
	views *lru.Cache[string, *dashboard.ProgramList]
}

func newViewCache(size int, backend dashboard.ProgramBackend, opts dashboard.Options) (*viewCache, error) {
	if size <= 0 {
		size = 256
	}
	views, err := lru.NewWithEvict(size, func(string, *dashboard.ProgramList) {
		metrics.OpenViews.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &viewCache{backend: backend, opts: opts, views: views}, nil
}

// get returns the list for id, creating one under a new id when id is
// unknown. created is true for a new list, which has not been loaded yet.
func (v *viewCache) get(id string) (key string, list *dashboard.ProgramList, created bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id != "" {
		if list, ok := v.views.Get(id); ok {
			return id, list, false
		}
	}
	key = uuid.NewString()
	list = dashboard.NewProgramList(v.backend, v.opts)
	v.views.Add(key, list)
	metrics.OpenViews.Inc()
	return key, list, true
}

func (v *viewCache) len() int {
	return v.views.Len()
}

func (v *viewCache) purge() {
	v.views.Purge()
}

// withView attaches the browser's program list to the request, loading it
// on first use.
func (s *Server) withView(c *gin.Context) {
	cookie, _ := c.Cookie(viewCookie)
	key, list, created := s.views.get(cookie)
	if created {
		// A failed load leaves an empty list with a status line
		_ = list.Load(c.Request.Context())
	}
	if key != cookie {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(viewCookie, key, 0, "/", "", s.config.SecureCookie, true)
	}
	c.Set(viewKey, list)
	c.Next()
}

func view(c *gin.Context) *dashboard.ProgramList {
	return c.MustGet(viewKey).(*dashboard.ProgramList)
}
