package rules

import (
	"errors"
	"reflect"
	"testing"
)

// recorder collects notifications emitted by a model
type recorder struct {
	got []Notification
}

func (r *recorder) Notify(n Notification) {
	r.got = append(r.got, n)
}

func (r *recorder) last() Notification {
	if len(r.got) == 0 {
		return Notification{}
	}
	return r.got[len(r.got)-1]
}

func completeRule(key Key, op Operator, value, score string) Rule {
	return Rule{Key: key, Output: Output{Value: value, Operator: op, Score: score}}
}

func TestNewRuleSetModelInitialState(t *testing.T) {
	m := NewRuleSetModel()

	got := m.Rules()
	want := []Rule{{Key: "age", Output: Output{Value: "", Operator: ">=", Score: ""}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rules() = %+v, want %+v", got, want)
	}

	if m.Combinator() != CombinatorAnd {
		t.Errorf("Combinator() = %q, want and", m.Combinator())
	}

	if doc, visible := m.Submitted(); doc != nil || visible {
		t.Errorf("Submitted() = %v, %v, want nil, false", doc, visible)
	}
}

func TestAddRule(t *testing.T) {
	rec := &recorder{}
	m := NewRuleSetModel(WithNotifier(rec))

	if err := m.UpdateOutputField(0, FieldValue, "18"); err != nil {
		t.Fatalf("UpdateOutputField() failed: %v", err)
	}
	before := m.Rules()

	for i := 1; i <= 5; i++ {
		m.AddRule()

		if m.Len() != 1+i {
			t.Fatalf("Len() = %d after %d adds, want %d", m.Len(), i, 1+i)
		}

		got := m.Rules()
		if got[len(got)-1] != DefaultRule() {
			t.Errorf("new rule = %+v, want default", got[len(got)-1])
		}
		if got[0] != before[0] {
			t.Errorf("existing rule changed: %+v, want %+v", got[0], before[0])
		}
	}

	if len(rec.got) != 5 {
		t.Fatalf("got %d notifications, want 5", len(rec.got))
	}
	if rec.last() != (Notification{Message: MsgRuleAdded, Kind: KindInfo}) {
		t.Errorf("notification = %+v", rec.last())
	}
}

func TestDeleteLastRuleIsRejected(t *testing.T) {
	for _, index := range []int{0, 1, -1, 42} {
		rec := &recorder{}
		m := NewRuleSetModel(WithNotifier(rec))
		_ = m.UpdateOutputField(0, FieldScore, "5")
		before := m.Rules()

		err := m.DeleteRule(index)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("DeleteRule(%d) error = %v, want ErrInvariantViolation", index, err)
		}
		if !reflect.DeepEqual(m.Rules(), before) {
			t.Errorf("DeleteRule(%d) changed state: %+v", index, m.Rules())
		}
		if rec.last() != (Notification{Message: MsgCannotDelete, Kind: KindError}) {
			t.Errorf("notification = %+v", rec.last())
		}
	}
}

func TestDeleteRuleKeepsOrder(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []Key
	}{
		{"first", 0, []Key{KeyCreditScore, KeyAccountBalance}},
		{"middle", 1, []Key{KeyAge, KeyAccountBalance}},
		{"last", 2, []Key{KeyAge, KeyCreditScore}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := NewRuleSetModel(WithNotifier(rec))
			m.AddRule()
			m.AddRule()
			_ = m.UpdateRuleKey(1, KeyCreditScore)
			_ = m.UpdateRuleKey(2, KeyAccountBalance)

			if err := m.DeleteRule(tt.index); err != nil {
				t.Fatalf("DeleteRule(%d) failed: %v", tt.index, err)
			}

			got := m.Rules()
			if len(got) != len(tt.want) {
				t.Fatalf("Len() = %d, want %d", len(got), len(tt.want))
			}
			for i, k := range tt.want {
				if got[i].Key != k {
					t.Errorf("rule %d key = %q, want %q", i, got[i].Key, k)
				}
			}
			if rec.last().Message != MsgRuleDeleted {
				t.Errorf("notification = %+v", rec.last())
			}
		})
	}
}

func TestDeleteRuleOutOfRange(t *testing.T) {
	m := NewRuleSetModel()
	m.AddRule()

	for _, index := range []int{-1, 2, 10} {
		if err := m.DeleteRule(index); !errors.Is(err, ErrPrecondition) {
			t.Errorf("DeleteRule(%d) error = %v, want ErrPrecondition", index, err)
		}
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestUpdatesTouchOnlyTargetField(t *testing.T) {
	m := NewRuleSetModel()
	m.AddRule()
	m.AddRule()

	if err := m.UpdateRuleKey(1, KeyAccountBalance); err != nil {
		t.Fatalf("UpdateRuleKey() failed: %v", err)
	}
	if err := m.UpdateOutputField(1, FieldOperator, "<"); err != nil {
		t.Fatalf("UpdateOutputField(operator) failed: %v", err)
	}
	if err := m.UpdateOutputField(1, FieldValue, "5000"); err != nil {
		t.Fatalf("UpdateOutputField(value) failed: %v", err)
	}
	if err := m.UpdateOutputField(2, FieldScore, "3"); err != nil {
		t.Fatalf("UpdateOutputField(score) failed: %v", err)
	}

	want := []Rule{
		DefaultRule(),
		completeRule(KeyAccountBalance, OpLess, "5000", ""),
		completeRule(KeyAge, OpGreaterEqual, "", "3"),
	}
	if got := m.Rules(); !reflect.DeepEqual(got, want) {
		t.Errorf("Rules() = %+v, want %+v", got, want)
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	m := NewRuleSetModel()

	snapshot := m.Rules()
	snapshot[0].Output.Value = "99"

	if m.Rules()[0].Output.Value != "" {
		t.Error("modifying Rules() result changed the model")
	}

	_ = m.UpdateOutputField(0, FieldValue, "18")
	if snapshot[0].Output.Value != "99" {
		t.Error("model update leaked into an earlier snapshot")
	}
}

func TestUpdatePreconditions(t *testing.T) {
	m := NewRuleSetModel()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"key index", func() error { return m.UpdateRuleKey(1, KeyAge) }},
		{"key value", func() error { return m.UpdateRuleKey(0, Key("income")) }},
		{"empty key", func() error { return m.UpdateRuleKey(0, Key("")) }},
		{"output index", func() error { return m.UpdateOutputField(-1, FieldValue, "1") }},
		{"output field", func() error { return m.UpdateOutputField(0, OutputField("weight"), "1") }},
		{"operator", func() error { return m.UpdateOutputField(0, FieldOperator, "!=") }},
		{"combinator", func() error { return m.SetCombinator(Combinator("xor")) }},
		{"empty combinator", func() error { return m.SetCombinator(Combinator("")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrPrecondition) {
				t.Errorf("error = %v, want ErrPrecondition", err)
			}
		})
	}

	if !reflect.DeepEqual(m.Rules(), []Rule{DefaultRule()}) || m.Combinator() != CombinatorAnd {
		t.Errorf("rejected updates changed state: %+v %q", m.Rules(), m.Combinator())
	}
}

func TestEmptyValueIsAcceptedWhileEditing(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")

	if err := m.UpdateOutputField(0, FieldValue, ""); err != nil {
		t.Fatalf("clearing value failed: %v", err)
	}
	if err := m.UpdateOutputField(0, FieldScore, "1e"); err != nil {
		t.Fatalf("partial numeric input rejected: %v", err)
	}
}

func TestSubmitSingleRule(t *testing.T) {
	rec := &recorder{}
	m := NewRuleSetModel(WithNotifier(rec))
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")
	_ = m.SetCombinator(CombinatorOr)

	doc, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	want := &SubmittedExpression{
		Rules:      []Rule{completeRule(KeyAge, OpGreaterEqual, "18", "10")},
		Combinator: CombinatorOr,
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Submit() = %+v, want %+v", doc, want)
	}

	stored, visible := m.Submitted()
	if !visible || !reflect.DeepEqual(stored, want) {
		t.Errorf("Submitted() = %+v, %v", stored, visible)
	}
	if rec.last() != (Notification{Message: MsgSubmitted, Kind: KindSuccess}) {
		t.Errorf("notification = %+v", rec.last())
	}
}

func TestSubmitWithoutCompleteRules(t *testing.T) {
	rec := &recorder{}
	m := NewRuleSetModel(WithNotifier(rec))
	m.AddRule()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(1, FieldScore, "10")

	doc, err := m.Submit()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
	if doc != nil {
		t.Errorf("Submit() returned %+v on failure", doc)
	}
	if got, visible := m.Submitted(); got != nil || visible {
		t.Errorf("failed Submit() produced output %+v", got)
	}
	if rec.last() != (Notification{Message: MsgIncomplete, Kind: KindInfo}) {
		t.Errorf("notification = %+v", rec.last())
	}
}

func TestFailedSubmitKeepsPriorOutput(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")

	first, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	_ = m.UpdateOutputField(0, FieldScore, "")
	if _, err := m.Submit(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}

	got, visible := m.Submitted()
	if !visible || !reflect.DeepEqual(got, first) {
		t.Errorf("Submitted() = %+v, %v, want prior output %+v", got, visible, first)
	}
}

func TestSubmitWithCheckFailureLeavesModelUnchanged(t *testing.T) {
	rec := &recorder{}
	m := NewRuleSetModel(WithNotifier(rec))
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")

	first, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	notified := len(rec.got)

	_ = m.UpdateOutputField(0, FieldScore, "20")
	checkErr := errors.New("compile failed")
	if _, err := m.SubmitWithCheck(func(*SubmittedExpression) error { return checkErr }); !errors.Is(err, checkErr) {
		t.Fatalf("SubmitWithCheck() error = %v, want %v", err, checkErr)
	}

	got, visible := m.Submitted()
	if !visible || !reflect.DeepEqual(got, first) {
		t.Errorf("Submitted() = %+v, %v, want prior output %+v", got, visible, first)
	}
	if len(rec.got) != notified {
		t.Errorf("notifications after failed check = %+v, want none", rec.got[notified:])
	}
}

func TestSubmitWithCheckSeesCandidate(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")

	var seen *SubmittedExpression
	doc, err := m.SubmitWithCheck(func(candidate *SubmittedExpression) error {
		seen = candidate
		return nil
	})
	if err != nil {
		t.Fatalf("SubmitWithCheck() failed: %v", err)
	}
	if !reflect.DeepEqual(seen, doc) {
		t.Errorf("check saw %+v, want %+v", seen, doc)
	}

	seen.Rules[0].Output.Value = "99"
	if got, _ := m.Submitted(); got.Rules[0].Output.Value != "18" {
		t.Error("check must not be able to alter the stored output")
	}
}

func TestSubmitFiltersIncompleteRules(t *testing.T) {
	m := NewRuleSetModel()
	m.AddRule()
	m.AddRule()
	_ = m.UpdateRuleKey(0, KeyCreditScore)
	_ = m.UpdateOutputField(0, FieldValue, "650")
	_ = m.UpdateOutputField(0, FieldScore, "20")
	_ = m.UpdateOutputField(1, FieldValue, "18")
	_ = m.UpdateRuleKey(2, KeyAccountBalance)
	_ = m.UpdateOutputField(2, FieldOperator, "=")
	_ = m.UpdateOutputField(2, FieldValue, "0")
	_ = m.UpdateOutputField(2, FieldScore, "-5")

	doc, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	want := []Rule{
		completeRule(KeyCreditScore, OpGreaterEqual, "650", "20"),
		completeRule(KeyAccountBalance, OpEqual, "0", "-5"),
	}
	if !reflect.DeepEqual(doc.Rules, want) {
		t.Errorf("Submit().Rules = %+v, want %+v", doc.Rules, want)
	}
	if m.Len() != 3 {
		t.Errorf("Submit() changed the live rule count to %d", m.Len())
	}
}

func TestSubmitRejectsNonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		value string
		score string
	}{
		{"word value", "eighteen", "10"},
		{"word score", "18", "ten"},
		{"NaN", "NaN", "10"},
		{"infinite score", "18", "Inf"},
		{"partial exponent", "18", "1e"},
		{"hex value", "0x12", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := NewRuleSetModel(WithNotifier(rec))
			_ = m.UpdateOutputField(0, FieldValue, tt.value)
			_ = m.UpdateOutputField(0, FieldScore, tt.score)

			if _, err := m.Submit(); !errors.Is(err, ErrValidation) {
				t.Errorf("Submit() error = %v, want ErrValidation", err)
			}
			if doc, _ := m.Submitted(); doc != nil {
				t.Errorf("invalid submit stored %+v", doc)
			}
			if rec.last().Kind != KindInfo {
				t.Errorf("notification = %+v, want info", rec.last())
			}
		})
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")

	first, err := m.Submit()
	if err != nil {
		t.Fatalf("first Submit() failed: %v", err)
	}
	second, err := m.Submit()
	if err != nil {
		t.Fatalf("second Submit() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Submit() not idempotent: %+v != %+v", first, second)
	}
}

func TestSubmittedIsSnapshot(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")

	doc, _ := m.Submit()
	doc.Rules[0].Output.Score = "1000"
	_ = m.UpdateOutputField(0, FieldValue, "21")

	stored, _ := m.Submitted()
	if stored.Rules[0].Output.Score != "10" || stored.Rules[0].Output.Value != "18" {
		t.Errorf("stored output aliased live or returned state: %+v", stored.Rules[0])
	}
}

func TestSubmitFallsBackToAnd(t *testing.T) {
	m := NewRuleSetModel()
	_ = m.UpdateOutputField(0, FieldValue, "18")
	_ = m.UpdateOutputField(0, FieldScore, "10")
	m.combinator = ""

	doc, err := m.Submit()
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if doc.Combinator != CombinatorAnd {
		t.Errorf("Combinator = %q, want and", doc.Combinator)
	}
}

func TestNotifierFunc(t *testing.T) {
	var got []Notification
	m := NewRuleSetModel(WithNotifier(NotifierFunc(func(n Notification) {
		got = append(got, n)
	})))

	m.AddRule()
	_ = m.DeleteRule(1)

	if len(got) != 2 || got[0].Message != MsgRuleAdded || got[1].Message != MsgRuleDeleted {
		t.Errorf("notifications = %+v", got)
	}
}

func TestWithNilNotifierKeepsDefault(t *testing.T) {
	m := NewRuleSetModel(WithNotifier(nil))
	m.AddRule()

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}
