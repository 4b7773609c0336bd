package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chazu/stackviz/vm"
)

func newTestREPL() replModel {
	return newREPLModel(localEvaluator{in: vm.NewInterpreter(vm.StandardVocabulary())})
}

func enter(t *testing.T, m replModel, line string) (replModel, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after %q", line)
	}
	return rm, cmd
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m, cmd := enter(t, newTestREPL(), "/quit")

	if !m.quitting {
		t.Fatalf("quitting flag not set")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateHelpCommandTogglesHelp(t *testing.T) {
	m, cmd := enter(t, newTestREPL(), "/help")

	if cmd != nil {
		t.Fatalf("expected no command for /help")
	}
	if m.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !m.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
}

func TestUnknownCommandIsReported(t *testing.T) {
	m, _ := enter(t, newTestREPL(), "/frobnicate")

	last := m.history[len(m.history)-1]
	if !last.isErr || !strings.Contains(last.output, "/frobnicate") {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestLinesAccumulateIntoOneProgram(t *testing.T) {
	m := newTestREPL()
	m, _ = enter(t, m, "1,2")
	m, _ = enter(t, m, ":add")
	m, _ = enter(t, m, "name,cpu,:eq")

	if got := strings.Join(m.program, ","); got != "1,2,:add,name,cpu,:eq" {
		t.Fatalf("program = %q", got)
	}
	if got := strings.Join(m.stack, " "); got != "3 name,cpu,:eq" {
		t.Fatalf("stack = %q", got)
	}
	if len(m.cmdHistory) != 3 {
		t.Fatalf("cmdHistory = %v", m.cmdHistory)
	}
}

func TestFailedLineIsNotCommitted(t *testing.T) {
	m := newTestREPL()
	m, _ = enter(t, m, "1")
	m, _ = enter(t, m, ":add")

	if got := strings.Join(m.program, ","); got != "1" {
		t.Fatalf("program = %q, the failing line should be dropped", got)
	}
	if got := strings.Join(m.stack, " "); got != "1" {
		t.Fatalf("stack = %q", got)
	}
	last := m.history[len(m.history)-1]
	if !last.isErr || !strings.Contains(last.output, "add") {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestResetClearsProgram(t *testing.T) {
	m := newTestREPL()
	m, _ = enter(t, m, "a,b")
	m, _ = enter(t, m, "/reset")

	if len(m.program) != 0 || len(m.stack) != 0 {
		t.Fatalf("program %v and stack %v should be empty", m.program, m.stack)
	}
}

func TestWordsCommandFiltersByPrefix(t *testing.T) {
	m, _ := enter(t, newTestREPL(), "/words :nd")

	last := m.history[len(m.history)-1]
	if last.output != ":ndrop" {
		t.Fatalf("output = %q", last.output)
	}
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestREPL()
	m, _ = enter(t, m, "1")
	m, _ = enter(t, m, "2")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != "2" {
		t.Fatalf("up: input = %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != "1" {
		t.Fatalf("up twice: input = %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = model.(replModel)
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = model.(replModel)
	if m.textInput.Value() != "" || m.historyIdx != -1 {
		t.Fatalf("down past the end: input = %q idx = %d", m.textInput.Value(), m.historyIdx)
	}
}

func TestAutocompleteSingleMatch(t *testing.T) {
	m := newTestREPL()
	m.textInput.SetValue("a,b,:sw")

	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "a,b,:swap" {
		t.Fatalf("completed = %q", got)
	}
}

func TestAutocompleteListsCandidates(t *testing.T) {
	m := newTestREPL()
	m.textInput.SetValue("1,2,:su")

	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "1,2,:su" {
		t.Fatalf("input changed to %q", got)
	}
	last := m.history[len(m.history)-1]
	if !strings.Contains(last.output, ":sub") || !strings.Contains(last.output, ":sum") {
		t.Fatalf("completions = %q", last.output)
	}
}

func TestAutocompleteIgnoresLiterals(t *testing.T) {
	m := newTestREPL()
	m.textInput.SetValue("name,cp")

	m = m.handleAutocomplete()
	if m.textInput.Value() != "name,cp" || len(m.history) != 0 {
		t.Fatalf("a literal should not be completed")
	}
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(string) ([]string, error) { return nil, errors.New("server down") }
func (failingEvaluator) Words() []string                   { return nil }

func TestEvaluatorErrorsAreShown(t *testing.T) {
	m, _ := enter(t, newREPLModel(failingEvaluator{}), "1")

	last := m.history[len(m.history)-1]
	if !last.isErr || last.output != "server down" {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestStackPanelListsTopFirst(t *testing.T) {
	panel := renderStackPanel([]string{"bottom", "top"})
	top := strings.Index(panel, "top")
	bottom := strings.Index(panel, "bottom")
	if top < 0 || bottom < 0 || top > bottom {
		t.Fatalf("unexpected panel:\n%s", panel)
	}
	if !strings.Contains(renderStackPanel(nil), "Stack is empty") {
		t.Fatalf("empty stack panel should say so")
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	if got := newTestREPL().View(); got != "Loading..." {
		t.Fatalf("View() = %q", got)
	}
}
