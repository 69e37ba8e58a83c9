// Package router lays out the storefront and admin API under /api/v1.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where every Group is mounted. Health checks and docs live outside it.
const APIPrefix = "/api/v1"

// Router collects the API groups and mounts them on an engine.
type Router struct {
	engine *gin.Engine
	use    []gin.HandlerFunc
	groups []*Group
}

func NewRouter(engine *gin.Engine) *Router {
	return &Router{engine: engine}
}

// Use adds middleware that runs for API routes only.
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.use = append(r.use, mw...)
	return r
}

func (r *Router) Register(groups ...*Group) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group. Call it once.
func (r *Router) Setup() {
	api := r.engine.Group(APIPrefix, r.use...)
	for _, g := range r.groups {
		g.mount(api)
	}
}

// Group is a path prefix with its own middleware, routes and nested groups.
// Middleware given to a group also guards everything nested under it.
type Group struct {
	prefix string
	use    []gin.HandlerFunc
	routes []route
	groups []*Group
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewGroup(prefix string, use ...gin.HandlerFunc) *Group {
	return &Group{prefix: prefix, use: use}
}

// Group nests a new group under g.
func (g *Group) Group(prefix string, use ...gin.HandlerFunc) *Group {
	sub := NewGroup(prefix, use...)
	g.groups = append(g.groups, sub)
	return sub
}

func (g *Group) Handle(method, p string, handlers ...gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

func (g *Group) GET(p string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodGet, p, h...) }
func (g *Group) POST(p string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodPost, p, h...) }
func (g *Group) PUT(p string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodPut, p, h...) }
func (g *Group) PATCH(p string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodPatch, p, h...) }
func (g *Group) DELETE(p string, h ...gin.HandlerFunc) *Group { return g.Handle(http.MethodDelete, p, h...) }

func (g *Group) mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.use...)
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, sub := range g.groups {
		sub.mount(rg)
	}
}

// Endpoints lists "METHOD /path" for g and its nested groups, relative to
// the API prefix.
func (g *Group) Endpoints() []string {
	return g.endpoints("/")
}

func (g *Group) endpoints(base string) []string {
	base = path.Join(base, g.prefix)
	var out []string
	for _, rt := range g.routes {
		p := base
		if rt.path != "" {
			p = path.Join(base, rt.path)
		}
		out = append(out, rt.method+" "+p)
	}
	for _, sub := range g.groups {
		out = append(out, sub.endpoints(base)...)
	}
	return out
}
