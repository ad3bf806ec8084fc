package rules

import "fmt"

// Key identifies which measured quantity a rule inspects
type Key string

const (
	KeyAge            Key = "age"
	KeyCreditScore    Key = "credit_score"
	KeyAccountBalance Key = "account_balance"
)

// Keys lists the selectable keys in display order
var Keys = []Key{KeyAge, KeyCreditScore, KeyAccountBalance}

// Valid reports whether k is one of the enumerated keys
func (k Key) Valid() bool {
	switch k {
	case KeyAge, KeyCreditScore, KeyAccountBalance:
		return true
	}
	return false
}

// ParseKey converts a raw string into a Key
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown key %q (must be one of: age, credit_score, account_balance)", ErrPrecondition, s)
	}
	return k, nil
}

// Operator is the comparison applied between a key's measurement and the rule value
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
)

// Operators lists the selectable operators in display order
var Operators = []Operator{OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual}

// Valid reports whether op is one of the enumerated operators
func (op Operator) Valid() bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// ParseOperator converts a raw string into an Operator
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", fmt.Errorf("%w: unknown operator %q (must be one of: >, <, >=, <=, =)", ErrPrecondition, s)
	}
	return op, nil
}

// Combinator is the single logical operator joining every rule in the set
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// Valid reports whether c is one of the enumerated combinators
func (c Combinator) Valid() bool {
	return c == CombinatorAnd || c == CombinatorOr
}

// ParseCombinator converts a raw string into a Combinator
func ParseCombinator(s string) (Combinator, error) {
	c := Combinator(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown combinator %q (must be one of: and, or)", ErrPrecondition, s)
	}
	return c, nil
}

// OutputField names one editable field of a rule's Output
type OutputField string

const (
	FieldOperator OutputField = "operator"
	FieldValue    OutputField = "value"
	FieldScore    OutputField = "score"
)

// ParseOutputField converts a raw string into an OutputField
func ParseOutputField(s string) (OutputField, error) {
	switch f := OutputField(s); f {
	case FieldOperator, FieldValue, FieldScore:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown output field %q (must be one of: operator, value, score)", ErrPrecondition, s)
}

// Output is the comparison and score of a single rule.
// Value and Score hold raw numeric strings; the empty string is a valid
// intermediate state while the rule is being edited.
type Output struct {
	Value    string   `json:"value" yaml:"value"`
	Operator Operator `json:"operator" yaml:"operator"`
	Score    string   `json:"score" yaml:"score"`
}

// Rule is one scoring condition
type Rule struct {
	Key    Key    `json:"key" yaml:"key"`
	Output Output `json:"output" yaml:"output"`
}

// DefaultRule returns the rule appended by AddRule and present on a new model
func DefaultRule() Rule {
	return Rule{
		Key: KeyAge,
		Output: Output{
			Value:    "",
			Operator: OpGreaterEqual,
			Score:    "",
		},
	}
}

// Complete reports whether key, value and score are all filled in
func (r Rule) Complete() bool {
	return r.Key != "" && r.Output.Value != "" && r.Output.Score != ""
}

// SubmittedExpression is the read-only document produced by a successful submit
type SubmittedExpression struct {
	Rules      []Rule     `json:"rules" yaml:"rules"`
	Combinator Combinator `json:"combinator" yaml:"combinator"`
}
