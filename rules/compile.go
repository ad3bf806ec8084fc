package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the plan built for a submitted expression
const costLimit = 1000000

// Compiler turns a SubmittedExpression into type-checked CEL source.
// Every key is declared as a double variable so thresholds and scores
// compare and sum without integer/double mismatches.
type Compiler struct {
	env *cel.Env
}

// CompiledExpression holds the CEL rendering of a submitted rule set
type CompiledExpression struct {
	// Condition is true when the combined rules hold
	Condition string `json:"condition" yaml:"condition"`

	// Score sums the score of every rule whose comparison holds
	Score string `json:"score" yaml:"score"`
}

// NewCompiler creates a compiler with one variable per selectable key
func NewCompiler() (*Compiler, error) {
	opts := make([]cel.EnvOption, 0, len(Keys))
	for _, k := range Keys {
		opts = append(opts, cel.Variable(string(k), cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{env: env}, nil
}

// Compile renders and checks the condition and score expressions of doc
func (c *Compiler) Compile(doc *SubmittedExpression) (*CompiledExpression, error) {
	if doc == nil || len(doc.Rules) == 0 {
		return nil, fmt.Errorf("%w: nothing to compile", ErrValidation)
	}

	joiner := " && "
	if doc.Combinator == CombinatorOr {
		joiner = " || "
	}

	conditions := make([]string, 0, len(doc.Rules))
	terms := make([]string, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		cond, err := ruleCondition(i+1, r)
		if err != nil {
			return nil, err
		}
		score, err := celDouble(r.Output.Score)
		if err != nil {
			return nil, fmt.Errorf("rule %d score %q: %w", i+1, r.Output.Score, err)
		}

		conditions = append(conditions, cond)
		terms = append(terms, fmt.Sprintf("(%s ? %s : 0.0)", cond, score))
	}

	compiled := &CompiledExpression{
		Condition: strings.Join(conditions, joiner),
		Score:     strings.Join(terms, " + "),
	}

	if err := c.check(compiled.Condition, cel.BoolType); err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	if err := c.check(compiled.Score, cel.DoubleType); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	return compiled, nil
}

// check compiles expression and verifies its result type
func (c *Compiler) check(expression string, want *cel.Type) error {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(want) {
		return fmt.Errorf("expression %q yields %s, want %s", expression, ast.OutputType(), want)
	}

	if _, err := c.env.Program(ast, cel.CostLimit(costLimit)); err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	return nil
}

func ruleCondition(position int, r Rule) (string, error) {
	if !r.Key.Valid() {
		return "", fmt.Errorf("rule %d has unknown key %q", position, r.Key)
	}

	var op string
	switch r.Output.Operator {
	case OpEqual:
		op = "=="
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		op = string(r.Output.Operator)
	default:
		return "", fmt.Errorf("rule %d has unknown operator %q", position, r.Output.Operator)
	}

	value, err := celDouble(r.Output.Value)
	if err != nil {
		return "", fmt.Errorf("rule %d value %q: %w", position, r.Output.Value, err)
	}

	return fmt.Sprintf("%s %s %s", r.Key, op, value), nil
}

// celDouble formats a numeric string as a CEL double literal
func celDouble(s string) (string, error) {
	v, err := parseNumber(s)
	if err != nil {
		return "", err
	}

	lit := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(lit, ".") {
		lit += ".0"
	}
	return lit, nil
}
