package openapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Operation describes one HTTP route. Scopes and Kinds double as the access
// rules evaluated for the route.
type Operation struct {
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Scopes      []string       `json:"x-required-scopes,omitempty"`
	Kinds       []string       `json:"x-principal-kinds,omitempty"`
	Responses   map[string]any `json:"responses"`
}

// Registry holds the operations served by the process. Register is called
// while routes are mounted; reads happen afterwards.
type Registry struct {
	mu  sync.RWMutex
	ops []Operation
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(op Operation) {
	op.Method = strings.ToLower(op.Method)
	if op.Responses == nil {
		op.Responses = map[string]any{"200": map[string]any{"description": "OK"}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Operations returns a copy of the registered operations ordered by path
// then method.
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	out := make([]Operation, len(r.ops))
	copy(out, r.ops)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Build produces a minimal OpenAPI 3.1 document of the registered
// operations. scopes lists the scope catalog advertised by the token endpoint.
func (r *Registry) Build(serviceName, version string, scopes []string) map[string]any {
	paths := map[string]any{}
	for _, op := range r.Operations() {
		if _, ok := paths[op.Path]; !ok {
			paths[op.Path] = map[string]any{}
		}
		m := map[string]any{
			"summary":     op.Summary,
			"description": op.Description,
			"tags":        op.Tags,
			"responses":   op.Responses,
		}
		if len(op.Scopes) > 0 {
			m["x-required-scopes"] = op.Scopes
			m["security"] = []map[string]any{{"oauth": op.Scopes}}
		}
		if len(op.Kinds) > 0 {
			m["x-principal-kinds"] = op.Kinds
		}
		paths[op.Path].(map[string]any)[op.Method] = m
	}
	scopeDocs := map[string]string{}
	for _, s := range scopes {
		scopeDocs[s] = s
	}
	return map[string]any{
		"openapi": "3.1.0",
		"info":    map[string]any{"title": serviceName, "version": version},
		"paths":   paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"oauth": map[string]any{
					"type": "oauth2",
					"flows": map[string]any{
						"password": map[string]any{
							"tokenUrl": "/oauth/token",
							"scopes":   scopeDocs,
						},
						"authorizationCode": map[string]any{
							"authorizationUrl": "/oauth/authorize",
							"tokenUrl":         "/oauth/token",
							"refreshUrl":       "/oauth/token",
							"scopes":           scopeDocs,
						},
						"implicit": map[string]any{
							"authorizationUrl": "/oauth/authorize",
							"scopes":           scopeDocs,
						},
					},
				},
			},
		},
	}
}

// ServeHandler returns an HTTP handler that serves the built OpenAPI JSON.
func (r *Registry) ServeHandler(serviceName, version string, scopes []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Build(serviceName, version, scopes))
	}
}
