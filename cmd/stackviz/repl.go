package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chazu/stackviz/server"
	"github.com/chazu/stackviz/vm"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

// evaluator runs programs for the REPL, locally or against a server.
type evaluator interface {
	Evaluate(program string) ([]string, error)
	Words() []string
}

type localEvaluator struct {
	in *vm.Interpreter
}

func (e localEvaluator) Evaluate(program string) ([]string, error) {
	r, err := e.in.Execute(program)
	if err != nil {
		return nil, err
	}
	return r.Strings(), nil
}

func (e localEvaluator) Words() []string {
	return e.in.Vocabulary().Names()
}

type remoteEvaluator struct {
	client *server.Client
	words  []string
}

func newRemoteEvaluator(url string) (*remoteEvaluator, error) {
	c := server.NewClient(&http.Client{Timeout: 30 * time.Second}, url)
	words, err := c.ListWords(context.Background(), "")
	if err != nil {
		return nil, fmt.Errorf("cannot reach %s: %w", url, err)
	}
	e := &remoteEvaluator{client: c}
	for _, w := range words {
		e.words = append(e.words, w.Name)
	}
	return e, nil
}

func (e *remoteEvaluator) Evaluate(program string) ([]string, error) {
	resp, err := e.client.Evaluate(context.Background(), &server.EvaluateRequest{Program: program})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(resp.Stack))
	for i, item := range resp.Stack {
		out[i] = item.Text
	}
	return out, nil
}

func (e *remoteEvaluator) Words() []string { return e.words }

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

// replModel keeps the program entered so far; every line extends it, so
// the stack carries over between lines until /reset.
type replModel struct {
	textInput   textinput.Model
	eval        evaluator
	program     []string
	stack       []string
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showStack   bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlS key.Binding
	CtrlK key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous line"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next line"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "evaluate"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete word"),
	),
	CtrlS: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "toggle stack"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
}

func newREPLModel(eval evaluator) replModel {
	ti := textinput.New()
	ti.Placeholder = "name,cpu,:eq,:sum"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "stackviz> "

	return replModel{
		textInput:  ti,
		eval:       eval,
		historyIdx: -1,
		showStack:  true,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 12
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = nil
			return m, nil

		case key.Matches(msg, keys.CtrlS):
			m.showStack = !m.showStack
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.SetValue("")
			m.historyIdx = -1

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m = m.evaluate(input)
			m.cmdHistory = append(m.cmdHistory, input)
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// evaluate runs the session program extended by input. The extension is
// kept only when it evaluates.
func (m replModel) evaluate(input string) replModel {
	program := append(append([]string(nil), m.program...), input)
	stack, err := m.eval.Evaluate(strings.Join(program, ","))
	if err != nil {
		m.history = append(m.history, historyEntry{input: input, output: err.Error(), isErr: true})
		return m
	}
	m.program = program
	m.stack = stack
	output := "(empty)"
	if len(stack) > 0 {
		output = stack[len(stack)-1]
	}
	m.history = append(m.history, historyEntry{input: input, output: output})
	return m
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/help", "/h":
		m.showHelp = !m.showHelp
	case "/clear", "/c":
		m.history = nil
	case "/stack", "/s":
		m.showStack = !m.showStack
	case "/reset", "/r":
		m.program = nil
		m.stack = nil
		m.history = append(m.history, historyEntry{input: input, output: "Stack reset"})
	case "/program", "/p":
		m.history = append(m.history, historyEntry{input: input, output: strings.Join(m.program, ",")})
	case "/words", "/w":
		prefix := ""
		if len(parts) > 1 {
			prefix = strings.TrimPrefix(parts[1], ":")
		}
		var names []string
		for _, w := range m.eval.Words() {
			if strings.HasPrefix(w, prefix) {
				names = append(names, ":"+w)
			}
		}
		m.history = append(m.history, historyEntry{input: input, output: strings.Join(names, " ")})
	case "/quit", "/q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

// handleAutocomplete completes the word reference being typed at the end
// of the input.
func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	cut := strings.LastIndexByte(input, ',') + 1
	last := strings.TrimSpace(input[cut:])
	if !strings.HasPrefix(last, ":") {
		return m
	}
	prefix := last[1:]

	var completions []string
	for _, w := range m.eval.Words() {
		if strings.HasPrefix(w, prefix) {
			completions = append(completions, w)
		}
	}
	sort.Strings(completions)

	if len(completions) == 1 {
		m.textInput.SetValue(input[:cut] + ":" + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: :" + strings.Join(completions, " :"),
		})
	}
	return m
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}
	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("stackviz REPL")
	b.WriteString(header + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	reservedLines := 8
	if m.showHelp {
		reservedLines += 11
	}
	if m.showStack {
		reservedLines += len(m.stack) + 3
	}
	availableHeight := max(m.height-reservedLines, 1)

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = len(m.history) - availableHeight
	}
	for _, entry := range m.history[historyStart:] {
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isErr {
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		} else {
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
	}
	b.WriteString("\n")

	if m.showStack {
		b.WriteString(renderStackPanel(m.stack))
		b.WriteString("\n")
	}
	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+s") + helpDescStyle.Render(" stack  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

// renderStackPanel lists the stack top first.
func renderStackPanel(stack []string) string {
	if len(stack) == 0 {
		return borderStyle.Render(mutedStyle.Render("Stack is empty"))
	}
	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Stack"))
	indexStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for i := len(stack) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("  %s %s", indexStyle.Render(fmt.Sprintf("%2d", len(stack)-1-i)), stack[i]))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate line history"},
		{"Tab", "Complete :word"},
		{"Enter", "Append the line to the program"},
		{"/help", "Toggle this help"},
		{"/stack", "Toggle the stack panel"},
		{"/words", "List words, optionally by prefix"},
		{"/program", "Show the program so far"},
		{"/clear", "Clear history"},
		{"/reset", "Start a new program"},
		{"/quit", "Exit REPL"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-9s", h.key)),
			helpDescStyle.Render(h.desc)))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func replCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("repl")
	remote := fs.String("remote", "", "evaluate on the stackviz server at this URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var eval evaluator
	if *remote != "" {
		r, err := newRemoteEvaluator(*remote)
		if err != nil {
			return err
		}
		eval = r
	} else {
		m, err := g.load()
		if err != nil {
			return err
		}
		in, err := m.NewInterpreter()
		if err != nil {
			return err
		}
		eval = localEvaluator{in: in}
	}

	p := tea.NewProgram(newREPLModel(eval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
