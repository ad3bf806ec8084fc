package rules

import "fmt"

// RuleSetModel owns the editable rule collection and its combinator.
// It is not safe for concurrent use; callers that receive events from
// several goroutines must serialize them (see session.Session.Do).
type RuleSetModel struct {
	rules      []Rule
	combinator Combinator
	submitted  *SubmittedExpression
	visible    bool
	notifier   Notifier
}

// ModelOption configures a RuleSetModel
type ModelOption func(*RuleSetModel)

// WithNotifier routes add/delete/submit notifications to n
func WithNotifier(n Notifier) ModelOption {
	return func(m *RuleSetModel) {
		if n != nil {
			m.notifier = n
		}
	}
}

// NewRuleSetModel creates a model holding exactly one default rule
// and the "and" combinator
func NewRuleSetModel(opts ...ModelOption) *RuleSetModel {
	m := &RuleSetModel{
		rules:      []Rule{DefaultRule()},
		combinator: CombinatorAnd,
		notifier:   discardNotifier{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Rules returns a copy of the current rules in order
func (m *RuleSetModel) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Len returns the number of rules
func (m *RuleSetModel) Len() int {
	return len(m.rules)
}

// Combinator returns the current combinator
func (m *RuleSetModel) Combinator() Combinator {
	return m.combinator
}

// Submitted returns a copy of the last submitted document and whether it is visible
func (m *RuleSetModel) Submitted() (*SubmittedExpression, bool) {
	if m.submitted == nil {
		return nil, false
	}
	return m.submitted.clone(), m.visible
}

// AddRule appends a default rule to the end of the sequence
func (m *RuleSetModel) AddRule() {
	m.rules = append(m.rules, DefaultRule())
	m.notify(MsgRuleAdded, KindInfo)
}

// DeleteRule removes the rule at index.
// The last remaining rule can never be deleted, whatever index is given.
func (m *RuleSetModel) DeleteRule(index int) error {
	if len(m.rules) == 1 {
		m.notify(MsgCannotDelete, KindError)
		return fmt.Errorf("%w: cannot delete last rule", ErrInvariantViolation)
	}

	if err := m.checkIndex(index); err != nil {
		return err
	}

	m.rules = append(m.rules[:index:index], m.rules[index+1:]...)

	// Deletions are styled as destructive.
	m.notify(MsgRuleDeleted, KindError)
	return nil
}

// UpdateRuleKey replaces the key of the rule at index
func (m *RuleSetModel) UpdateRuleKey(index int, key Key) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	if !key.Valid() {
		return fmt.Errorf("%w: unknown key %q", ErrPrecondition, key)
	}

	m.rules[index].Key = key
	return nil
}

// UpdateOutputField replaces one output field of the rule at index.
// Value and score are stored raw; they are only checked on Submit.
func (m *RuleSetModel) UpdateOutputField(index int, field OutputField, value string) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}

	out := &m.rules[index].Output
	switch field {
	case FieldOperator:
		op, err := ParseOperator(value)
		if err != nil {
			return err
		}
		out.Operator = op
	case FieldValue:
		out.Value = value
	case FieldScore:
		out.Score = value
	default:
		return fmt.Errorf("%w: unknown output field %q", ErrPrecondition, field)
	}

	return nil
}

// SetCombinator replaces the combinator applied to the whole rule set
func (m *RuleSetModel) SetCombinator(c Combinator) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown combinator %q", ErrPrecondition, c)
	}
	m.combinator = c
	return nil
}

// Submit filters the rules down to the complete ones and stores the result
// as the visible output document. When no rule is complete, or a complete
// rule is not numeric, ErrValidation is returned and the previously
// submitted document is left untouched.
func (m *RuleSetModel) Submit() (*SubmittedExpression, error) {
	return m.SubmitWithCheck(nil)
}

// SubmitWithCheck is Submit with an extra check run on the candidate
// document before it is stored. An error from check is returned as is and
// leaves the model unchanged, with no notification.
func (m *RuleSetModel) SubmitWithCheck(check func(*SubmittedExpression) error) (*SubmittedExpression, error) {
	filtered := make([]Rule, 0, len(m.rules))
	for i, r := range m.rules {
		if !r.Complete() {
			continue
		}
		if err := ValidateRule(i+1, r); err != nil {
			m.notify(fmt.Sprintf("Invalid %s.", err), KindInfo)
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		filtered = append(filtered, r)
	}

	if len(filtered) == 0 {
		m.notify(MsgIncomplete, KindInfo)
		return nil, fmt.Errorf("%w: no complete rules to submit", ErrValidation)
	}

	combinator := m.combinator
	if combinator == "" {
		combinator = CombinatorAnd
	}

	doc := &SubmittedExpression{
		Rules:      filtered,
		Combinator: combinator,
	}
	if check != nil {
		if err := check(doc.clone()); err != nil {
			return nil, err
		}
	}

	m.submitted = doc
	m.visible = true

	m.notify(MsgSubmitted, KindSuccess)
	return m.submitted.clone(), nil
}

func (m *RuleSetModel) checkIndex(index int) error {
	if index < 0 || index >= len(m.rules) {
		return fmt.Errorf("%w: rule index %d out of range [0, %d)", ErrPrecondition, index, len(m.rules))
	}
	return nil
}

func (m *RuleSetModel) notify(message string, kind NotificationKind) {
	m.notifier.Notify(Notification{Message: message, Kind: kind})
}

func (e *SubmittedExpression) clone() *SubmittedExpression {
	rules := make([]Rule, len(e.Rules))
	copy(rules, e.Rules)
	return &SubmittedExpression{Rules: rules, Combinator: e.Combinator}
}
