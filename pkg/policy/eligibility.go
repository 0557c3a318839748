// Package policy lets operators refine trace eligibility with a Rego rule,
// on top of the router's static glue-target flag. The rule is compiled once
// at construction; evaluation is synchronous and in-memory so it can sit on
// the routing hot path.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/ast"
	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/rego"

	"github.com/routelens/routelens/pkg/emitter"
)

const defaultEntrypoint = "data.routelens.trace.allow"

// Options control eligibility policy construction.
type Options struct {
	// Entrypoint is the boolean decision path. Defaults to
	// data.routelens.trace.allow.
	Entrypoint string
	// Module is the Rego source of the rule.
	Module string
	// ModuleName labels the module in compile errors, e.g. its file name.
	ModuleName string
}

// Eligibility evaluates whether a routed request should produce a trace
// event. It implements emitter.EligibilityPolicy.
type Eligibility struct {
	query rego.PreparedEvalQuery
}

// NewEligibility parses and compiles the rule, surfacing syntax errors
// immediately rather than on the first routed request.
func NewEligibility(ctx context.Context, opts Options) (*Eligibility, error) {
	if strings.TrimSpace(opts.Module) == "" {
		return nil, errors.New("eligibility policy requires a rego module")
	}

	entry := strings.TrimSpace(opts.Entrypoint)
	if entry == "" {
		entry = defaultEntrypoint
	}
	name := opts.ModuleName
	if name == "" {
		name = "eligibility.rego"
	}

	module, err := ast.ParseModuleWithOpts(name, opts.Module, ast.ParserOptions{RegoVersion: ast.RegoV1})
	if err != nil {
		return nil, fmt.Errorf("parse rego module %q: %w", name, err)
	}

	query, err := rego.New(
		rego.Query(entry),
		rego.ParsedModule(module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile rego module %q: %w", name, err)
	}

	return &Eligibility{query: query}, nil
}

// Eligible evaluates the rule against the resolved route. An undefined
// decision allows the trace, matching the behaviour with no policy at all.
func (p *Eligibility) Eligible(ctx context.Context, info emitter.RouteInfo) (bool, error) {
	input := map[string]any{
		"request_id": info.RequestID,
		"method":     info.Method,
		"path":       info.Path,
		"path_base":  info.PathBase,
		"target":     info.TargetName,
	}

	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate eligibility: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return true, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("eligibility decision is %T, want bool", results[0].Expressions[0].Value)
	}
	return allowed, nil
}
