// Package access evaluates route-level authorization for decoded principals
// with a Rego policy. The route table comes from the openapi registry.
package access

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
	"go.uber.org/zap"

	"shopgate/internal/principal"
	"shopgate/pkg/middleware"
	"shopgate/pkg/openapi"
	"shopgate/pkg/problems"
)

//go:embed policy.rego
var policyModule string

// Input is what the policy sees for one request.
type Input struct {
	Method      string
	Path        string
	Kind        string
	Authorities []string
	Scopes      []string
}

type Decision struct {
	Allow  bool
	Reason string
}

// Policy is a prepared query over a fixed route table.
type Policy struct {
	query rego.PreparedEvalQuery
}

// New compiles the policy against the operations registered so far.
func New(ctx context.Context, ops []openapi.Operation) (*Policy, error) {
	routes := make([]any, 0, len(ops))
	for _, op := range ops {
		routes = append(routes, map[string]any{
			"method": strings.ToLower(op.Method),
			"path":   op.Path,
			"scopes": toAny(op.Scopes),
			"kinds":  toAny(op.Kinds),
		})
	}
	q, err := rego.New(
		rego.Query("data.shopgate.access"),
		rego.Module("access.rego", policyModule),
		rego.Store(inmem.NewFromObject(map[string]any{"routes": routes})),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("access: prepare policy: %w", err)
	}
	return &Policy{query: q}, nil
}

// Decide evaluates in. Evaluation errors deny.
func (p *Policy) Decide(ctx context.Context, in Input) (Decision, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"method": strings.ToLower(in.Method),
		"path":   in.Path,
		"principal": map[string]any{
			"kind":        in.Kind,
			"authorities": toAny(in.Authorities),
		},
		"scopes": toAny(in.Scopes),
	}))
	if err != nil {
		return Decision{Reason: "policy error"}, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{Reason: "policy returned no result"}, nil
	}
	m, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{Reason: "policy returned no result"}, nil
	}
	d := Decision{}
	d.Allow, _ = m["allow"].(bool)
	d.Reason, _ = m["reason"].(string)
	return d, nil
}

// Middleware enforces the policy for requests authenticated by
// middleware.BearerAuth.
func (p *Policy) Middleware(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pr, ok := principal.FromContext(r.Context())
			if !ok {
				problems.Write(w, problems.New(problems.EInvalidToken, "request is not authenticated"))
				return
			}
			d, err := p.Decide(r.Context(), Input{
				Method:      r.Method,
				Path:        r.URL.Path,
				Kind:        pr.Kind.String(),
				Authorities: pr.Authorities,
				Scopes:      middleware.ScopesFrom(r.Context()),
			})
			if err != nil {
				log.Errorw("access policy failed", "path", r.URL.Path, "err", err)
				problems.Write(w, problems.Wrap(err, problems.EInternal, "access.Decide"))
				return
			}
			if !d.Allow {
				log.Infow("access denied", "path", r.URL.Path, "subject", pr.Subject(), "reason", d.Reason)
				problems.Write(w, problems.New(problems.EAccessDenied, "%s", d.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toAny(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
