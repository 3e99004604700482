package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"

	id "exportgate/pkg/domain"
)

// NewExpressionRule builds a document-scoped rule from a CEL expression. The
// expression sees the document's structured fields as the map variable `doc`
// and must produce a boolean. Compilation errors are returned here so a bad
// expression cannot reach evaluation; runtime errors (such as a missing key)
// become failed results, consistent with the missing-data contract.
func NewExpressionRule(ruleID, name string, severity id.Severity, docType id.DocumentType, expr string) (Rule, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return Rule{}, fmt.Errorf("expression rule %s: %w", ruleID, err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return Rule{}, fmt.Errorf("expression rule %s: compile: %w", ruleID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return Rule{}, fmt.Errorf("expression rule %s: expression must produce a boolean, got %s",
			ruleID, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return Rule{}, fmt.Errorf("expression rule %s: program: %w", ruleID, err)
	}

	return Rule{
		ID:           ruleID,
		Name:         name,
		Severity:     severity,
		DocumentType: docType,
		Check: func(ctx *Context) Outcome {
			for _, doc := range docsOfType(ctx, docType) {
				fields := doc.Fields
				if fields == nil {
					fields = map[string]any{}
				}
				val, _, err := prg.Eval(map[string]any{"doc": fields})
				if err != nil {
					return fail(fmt.Sprintf("document %s: %v", doc.ID, err))
				}
				ok, isBool := val.Value().(bool)
				if !isBool {
					return fail(fmt.Sprintf("document %s: expression produced a non-boolean", doc.ID))
				}
				if !ok {
					return fail(fmt.Sprintf("document %s: expression %q not satisfied", doc.ID, expr))
				}
			}
			return pass()
		},
	}, nil
}
