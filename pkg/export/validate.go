package export

import (
	"fmt"

	"github.com/antchfx/xpath"
)

// Validate checks the syntactic validity of a candidate XPath expression.
// It is read-only with respect to caller state.
func Validate(expression string) (*ValidationInfo, error) {
	if _, err := xpath.Compile(expression); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &ValidationInfo{
		Expression:      expression,
		ValueExtracting: IsValueExtracting(expression),
	}, nil
}

// ValidateAgainst checks syntax and then trial-evaluates the expression
// against a sample XML document, reporting how many results it produced.
// Status notifications emitted through hooks are advisory only. Pass a nil
// hooks value to suppress them.
func ValidateAgainst(expression, samplePath string, hooks Hooks) (*ValidationInfo, error) {
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	hooks.OnStatus("Validating XPath syntax…")
	info, err := Validate(expression)
	if err != nil {
		return nil, err
	}
	expr, _ := xpath.Compile(expression) // already known to compile

	hooks.OnStatus("Testing XPath against XML file…")
	doc, err := parseXMLFile(samplePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", samplePath, err)
	}

	values, count, err := evaluateExpr(expr, info.ValueExtracting, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvalFailed, err)
	}
	info.Evaluated = true
	if info.ValueExtracting {
		info.ResultCount = len(values)
	} else {
		info.ResultCount = count
	}
	return info, nil
}
