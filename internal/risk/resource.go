package risk

import (
	"strings"
	"sync"

	"github.com/abendrothj/doppel/internal/model"
)

// ResourceMapping groups the HTTP verbs observed for one normalized
// resource path, the way the teacher's utils.CRUDMapper groups
// operations per SiteContext resource (SUPPLEMENTARY FEATURES #2 in
// SPEC_FULL.md). This never feeds the risk formula itself — it only
// annotates report output with resource-coverage context.
type ResourceMapping struct {
	ResourcePath string
	Methods      map[model.Method]bool
}

// HasFullCRUD reports whether the resource has GET, POST, DELETE, and
// either PUT or PATCH.
func (m *ResourceMapping) HasFullCRUD() bool {
	if !m.Methods[model.MethodGet] || !m.Methods[model.MethodPost] || !m.Methods[model.MethodDelete] {
		return false
	}
	return m.Methods[model.MethodPut] || m.Methods[model.MethodPatch]
}

// ResourceMapper accumulates ResourceMappings across every endpoint in
// a scan. Safe for concurrent use since the Execution Engine may
// complete endpoints out of order.
type ResourceMapper struct {
	mu    sync.Mutex
	byRes map[string]*ResourceMapping
}

func NewResourceMapper() *ResourceMapper {
	return &ResourceMapper{byRes: make(map[string]*ResourceMapping)}
}

// Add folds one endpoint's (resource, method) pair into the map.
func (rm *ResourceMapper) Add(e *model.Endpoint) {
	resource := resourcePath(e.TemplateURL)
	if resource == "" {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	m, ok := rm.byRes[resource]
	if !ok {
		m = &ResourceMapping{ResourcePath: resource, Methods: make(map[model.Method]bool)}
		rm.byRes[resource] = m
	}
	m.Methods[e.Method] = true
}

// Mappings returns a snapshot of every resource seen so far.
func (rm *ResourceMapper) Mappings() []*ResourceMapping {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	out := make([]*ResourceMapping, 0, len(rm.byRes))
	for _, m := range rm.byRes {
		out = append(out, m)
	}
	return out
}

// resourcePath strips path-parameter segments ({id}, :id) off a
// template URL to produce a stable resource key, collapsing
// "/users/{id}" and "/users/:id" and "/users/{userId}" to "/users".
func resourcePath(templateURL string) string {
	segments := strings.Split(strings.Trim(templateURL, "/"), "/")
	var kept []string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if isPlaceholder(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return ""
	}
	return "/" + strings.Join(kept, "/")
}

func isPlaceholder(seg string) bool {
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return true
	}
	if strings.HasPrefix(seg, ":") {
		return true
	}
	return false
}
