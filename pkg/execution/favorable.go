package execution

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/playrec/pkg/api"
)

// DefaultFavorable is the expression used when none is configured.
const DefaultFavorable = "failed == 0"

// Predicate decides whether a project summary is shown as favorable. It
// sees total, success, failed, status and message.
type Predicate struct {
	source  string
	program *vm.Program
}

// CompilePredicate compiles an expr-lang boolean expression. The
// expression must reference failed: the failed count decides the outcome,
// the other variables only refine it.
func CompilePredicate(source string) (*Predicate, error) {
	if source == "" {
		source = DefaultFavorable
	}
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("compile favorable expression %q: %w", source, err)
	}
	if !references(tree.Node, "failed") {
		return nil, fmt.Errorf("favorable expression %q must reference failed", source)
	}
	program, err := expr.Compile(source, expr.Env(summaryEnv(api.ProjectExecutionSummary{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile favorable expression %q: %w", source, err)
	}
	return &Predicate{source: source, program: program}, nil
}

// String returns the expression source.
func (p *Predicate) String() string {
	return p.source
}

// Eval evaluates the predicate against sum.
func (p *Predicate) Eval(sum api.ProjectExecutionSummary) (bool, error) {
	out, err := expr.Run(p.program, summaryEnv(sum))
	if err != nil {
		return false, fmt.Errorf("eval favorable expression %q: %w", p.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("favorable expression %q did not return bool (got %T)", p.source, out)
	}
	return ok, nil
}

func summaryEnv(sum api.ProjectExecutionSummary) map[string]any {
	return map[string]any{
		"total":   sum.Total,
		"success": sum.Success,
		"failed":  sum.Failed,
		"status":  sum.Status,
		"message": sum.Message,
	}
}

type identFinder struct {
	name  string
	found bool
}

func (f *identFinder) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok && id.Value == f.name {
		f.found = true
	}
}

func references(node ast.Node, name string) bool {
	f := &identFinder{name: name}
	ast.Walk(&node, f)
	return f.found
}
