package formui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/liamcoop/scoreform/rules"
)

var keyLabels = map[rules.Key]string{
	rules.KeyAge:            "Age",
	rules.KeyCreditScore:    "Credit Score",
	rules.KeyAccountBalance: "Account Balance",
}

// HuhPrompter asks questions with huh forms
type HuhPrompter struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// NewHuhPrompter creates a prompter reading from in and drawing to out.
// Accessible (line-based) mode is used when in is not a terminal.
func NewHuhPrompter(in io.Reader, out io.Writer) *HuhPrompter {
	accessible := true
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		accessible = false
	}

	return &HuhPrompter{in: in, out: out, accessible: accessible}
}

func (p *HuhPrompter) run(ctx context.Context, groups ...*huh.Group) error {
	form := huh.NewForm(groups...).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(p.accessible)

	return form.RunWithContext(ctx)
}

// ChooseAction shows the current rule set and asks what to do next
func (p *HuhPrompter) ChooseAction(ctx context.Context, current []rules.Rule, combinator rules.Combinator) (Action, error) {
	var action Action

	err := p.run(ctx, huh.NewGroup(
		huh.NewNote().
			Title("Expression Form").
			Description(summary(current, combinator)),
		huh.NewSelect[Action]().
			Title("Action").
			Options(actionOptions()...).
			Value(&action),
	))
	if err != nil {
		return "", err
	}

	return action, nil
}

// ChooseRule asks for one rule position
func (p *HuhPrompter) ChooseRule(ctx context.Context, title string, current []rules.Rule) (int, error) {
	var index int

	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[int]().
			Title(title).
			Options(ruleOptions(current)...).
			Value(&index),
	))
	if err != nil {
		return 0, err
	}

	return index, nil
}

// EditRule asks for every field of one rule, prefilled with its current values
func (p *HuhPrompter) EditRule(ctx context.Context, index int, rule rules.Rule) (rules.Rule, error) {
	edited := rule

	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[rules.Key]().
			Title(fmt.Sprintf("Rule %d: Rule Type", index+1)).
			Options(keyOptions()...).
			Value(&edited.Key),
		huh.NewSelect[rules.Operator]().
			Title("Operator").
			Options(operatorOptions()...).
			Value(&edited.Output.Operator),
		huh.NewInput().
			Title("Value").
			Value(&edited.Output.Value),
		huh.NewInput().
			Title("Score").
			Value(&edited.Output.Score),
	))
	if err != nil {
		return rule, err
	}

	return edited, nil
}

// ChooseCombinator asks for the combinator joining all rules
func (p *HuhPrompter) ChooseCombinator(ctx context.Context, current rules.Combinator) (rules.Combinator, error) {
	choice := current

	err := p.run(ctx, huh.NewGroup(
		huh.NewSelect[rules.Combinator]().
			Title("Combinator").
			Options(
				huh.NewOption("AND", rules.CombinatorAnd),
				huh.NewOption("OR", rules.CombinatorOr),
			).
			Value(&choice),
	))
	if err != nil {
		return current, err
	}

	return choice, nil
}

func actionOptions() []huh.Option[Action] {
	return []huh.Option[Action]{
		huh.NewOption("Add Expression", ActionAdd),
		huh.NewOption("Edit rule", ActionEdit),
		huh.NewOption("Delete rule", ActionDelete),
		huh.NewOption("Change combinator", ActionCombinator),
		huh.NewOption("Submit", ActionSubmit),
		huh.NewOption("Quit", ActionQuit),
	}
}

func keyOptions() []huh.Option[rules.Key] {
	opts := make([]huh.Option[rules.Key], 0, len(rules.Keys))
	for _, k := range rules.Keys {
		opts = append(opts, huh.NewOption(keyLabel(k), k))
	}
	return opts
}

func operatorOptions() []huh.Option[rules.Operator] {
	opts := make([]huh.Option[rules.Operator], 0, len(rules.Operators))
	for _, op := range rules.Operators {
		opts = append(opts, huh.NewOption(string(op), op))
	}
	return opts
}

func ruleOptions(current []rules.Rule) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(current))
	for i, r := range current {
		opts = append(opts, huh.NewOption(ruleLabel(i, r), i))
	}
	return opts
}

func keyLabel(k rules.Key) string {
	if label, ok := keyLabels[k]; ok {
		return label
	}
	return string(k)
}

// ruleLabel renders a rule as one line, with "_" for unfilled fields
func ruleLabel(index int, r rules.Rule) string {
	return fmt.Sprintf("%d. %s %s %s scores %s",
		index+1, keyLabel(r.Key), r.Output.Operator, orBlank(r.Output.Value), orBlank(r.Output.Score))
}

func summary(current []rules.Rule, combinator rules.Combinator) string {
	s := fmt.Sprintf("Combinator: %s\n", combinator)
	for i, r := range current {
		s += ruleLabel(i, r) + "\n"
	}
	return s
}

func orBlank(s string) string {
	if s == "" {
		return "_"
	}
	return s
}
