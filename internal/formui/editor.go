// Package formui is a terminal presentation layer for a rules.RuleSetModel.
//
// The Editor loop renders nothing itself: it asks a Prompter for the next
// user decision, turns it into one model operation and prints the resulting
// notifications and submitted document.
package formui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/liamcoop/scoreform/rules"
)

// Action is one menu entry of the editor loop
type Action string

const (
	ActionAdd        Action = "add"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
	ActionCombinator Action = "combinator"
	ActionSubmit     Action = "submit"
	ActionQuit       Action = "quit"
)

// Prompter asks the user for one decision at a time
type Prompter interface {
	ChooseAction(ctx context.Context, current []rules.Rule, combinator rules.Combinator) (Action, error)
	ChooseRule(ctx context.Context, title string, current []rules.Rule) (int, error)
	EditRule(ctx context.Context, index int, rule rules.Rule) (rules.Rule, error)
	ChooseCombinator(ctx context.Context, current rules.Combinator) (rules.Combinator, error)
}

// Editor drives a RuleSetModel from user decisions
type Editor struct {
	model    *rules.RuleSetModel
	prompter Prompter
	out      io.Writer
	format   rules.Format
}

// NewEditor creates an editor that prints submitted documents to out in format
func NewEditor(model *rules.RuleSetModel, prompter Prompter, out io.Writer, format rules.Format) *Editor {
	return &Editor{
		model:    model,
		prompter: prompter,
		out:      out,
		format:   format,
	}
}

// PrintNotifier writes each notification to w as a single line
func PrintNotifier(w io.Writer) rules.Notifier {
	return rules.NotifierFunc(func(n rules.Notification) {
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
	})
}

// Run processes user decisions until the user quits or aborts
func (e *Editor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		action, err := e.prompter.ChooseAction(ctx, e.model.Rules(), e.model.Combinator())
		if err != nil {
			return ignoreAbort(err)
		}

		if action == ActionQuit {
			return nil
		}

		if err := e.handle(ctx, action); err != nil {
			return ignoreAbort(err)
		}
	}
}

// handle applies one action. Rejections the model already reported
// through a notification are not errors of the loop.
func (e *Editor) handle(ctx context.Context, action Action) error {
	switch action {
	case ActionAdd:
		e.model.AddRule()

	case ActionEdit:
		index, err := e.prompter.ChooseRule(ctx, "Rule to edit", e.model.Rules())
		if err != nil {
			return err
		}
		all := e.model.Rules()
		if index < 0 || index >= len(all) {
			fmt.Fprintf(e.out, "[%s] no rule at position %d\n", rules.KindError, index+1)
			return nil
		}
		current := all[index]
		edited, err := e.prompter.EditRule(ctx, index, current)
		if err != nil {
			return err
		}
		if err := e.applyEdit(index, current, edited); err != nil {
			fmt.Fprintf(e.out, "[%s] %v\n", rules.KindError, err)
		}

	case ActionDelete:
		index, err := e.prompter.ChooseRule(ctx, "Rule to delete", e.model.Rules())
		if err != nil {
			return err
		}
		if err := e.model.DeleteRule(index); err != nil && !errors.Is(err, rules.ErrInvariantViolation) {
			fmt.Fprintf(e.out, "[%s] %v\n", rules.KindError, err)
		}

	case ActionCombinator:
		c, err := e.prompter.ChooseCombinator(ctx, e.model.Combinator())
		if err != nil {
			return err
		}
		if err := e.model.SetCombinator(c); err != nil {
			fmt.Fprintf(e.out, "[%s] %v\n", rules.KindError, err)
		}

	case ActionSubmit:
		doc, err := e.model.Submit()
		if err != nil {
			return nil
		}
		fmt.Fprintln(e.out, "Output Data")
		if err := rules.Render(e.out, doc, e.format); err != nil {
			return fmt.Errorf("failed to render output: %w", err)
		}

	default:
		return fmt.Errorf("unknown action %q", action)
	}

	return nil
}

// applyEdit issues one model update per changed field
func (e *Editor) applyEdit(index int, before, after rules.Rule) error {
	if after.Key != before.Key {
		if err := e.model.UpdateRuleKey(index, after.Key); err != nil {
			return err
		}
	}

	fields := []struct {
		field         rules.OutputField
		before, after string
	}{
		{rules.FieldOperator, string(before.Output.Operator), string(after.Output.Operator)},
		{rules.FieldValue, before.Output.Value, after.Output.Value},
		{rules.FieldScore, before.Output.Score, after.Output.Score},
	}
	for _, f := range fields {
		if f.after == f.before {
			continue
		}
		if err := e.model.UpdateOutputField(index, f.field, f.after); err != nil {
			return err
		}
	}

	return nil
}

func ignoreAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	return err
}
