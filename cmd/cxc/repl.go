package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xplshn/cxc/pkg/ast"
	"github.com/xplshn/cxc/pkg/codegen"
	"github.com/xplshn/cxc/pkg/comptime"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/driver"
	"github.com/xplshn/cxc/pkg/parser"
	"github.com/xplshn/cxc/pkg/sexp"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	resultStyle   = lipgloss.NewStyle().Foreground(successColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Padding(0, 1)
	helpKeyStyle  = lipgloss.NewStyle().Foreground(highlightColor)
	helpDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
	borderStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
)

var formNames = []string{"const", "if", "enum", "field", "==", "proto", "extern", "proc", "struct"}

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	cfg         *config.Config
	env         *comptime.Env
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Quit  key.Binding
	Clear key.Binding
	Tab   key.Binding
	Help  key.Binding
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous input")),
	Down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next input")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "evaluate")),
	Quit:  key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
	Help:  key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "toggle help")),
}

func newREPLModel(cfg *config.Config) replModel {
	ti := textinput.New()
	ti.Placeholder = "(const X (enum a 0 b 1))"
	if cfg.Syntax == config.SyntaxDecl {
		ti.Placeholder = "X :: enum { a = 0, b = 1 }"
	}
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "cxc> "

	return replModel{
		textInput:  ti,
		cfg:        cfg,
		env:        comptime.NewEnv(cfg),
		historyIdx: -1,
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
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Clear):
			m.history = nil
			return m, nil

		case key.Matches(msg, keys.Help):
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
			return m.complete(), nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.SetValue("")
			m.historyIdx = -1
			if strings.HasPrefix(input, ":") {
				return m.handleCommand(input)
			}
			output, isErr := m.evaluate(input)
			m.history = append(m.history, historyEntry{input: input, output: output, isErr: isErr})
			m.cmdHistory = append(m.cmdHistory, input)
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = nil
	case ":env", ":e":
		var sb strings.Builder
		driver.DumpEnv(&sb, m.env)
		out := strings.TrimRight(sb.String(), "\n")
		if out == "" {
			out = "no bindings"
		}
		m.history = append(m.history, historyEntry{input: input, output: out})
	case ":emit":
		out, err := codegen.Emit(m.env, m.cfg)
		if err != nil {
			m.history = append(m.history, historyEntry{input: input, output: err.Error(), isErr: true})
		} else {
			m.history = append(m.history, historyEntry{input: input, output: strings.TrimRight(out, "\n")})
		}
	case ":reset", ":r":
		m.env = comptime.NewEnv(m.cfg)
		m.history = append(m.history, historyEntry{input: input, output: "Environment reset"})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{input: input, output: fmt.Sprintf("Unknown command: %s", cmd), isErr: true})
	}
	return m, nil
}

// evaluate runs every form on the line against the session environment and
// reports the value of the last one.
func (m replModel) evaluate(input string) (string, bool) {
	file := &diag.File{Name: "<repl>", Content: []byte(input)}
	ev := comptime.NewEvaluator(m.env, m.cfg, nil)

	var last comptime.Value
	var err error
	if m.cfg.Syntax == config.SyntaxDecl {
		var module []*ast.Node
		module, err = parser.NewParser(file.Content, m.cfg).Parse()
		for _, decl := range module {
			if err != nil {
				break
			}
			last, err = ev.Declare(decl)
		}
	} else {
		var forms []sexp.Exp
		forms, err = sexp.ReadAll(file.Content)
		for _, form := range forms {
			if err != nil {
				break
			}
			last, err = ev.Eval(form)
		}
	}

	if err != nil {
		var sb strings.Builder
		diag.Print(&sb, file, err)
		return strings.TrimRight(sb.String(), "\n"), true
	}
	if last == nil {
		return "ok", false
	}
	return last.String(), false
}

func (m replModel) complete() replModel {
	input := m.textInput.Value()
	start := strings.LastIndexAny(input, " ()") + 1
	word := input[start:]
	if word == "" {
		return m
	}

	var completions []string
	for _, f := range formNames {
		if strings.HasPrefix(f, word) {
			completions = append(completions, f)
		}
	}
	for _, b := range m.env.Bindings() {
		if strings.HasPrefix(b.Name, word) {
			completions = append(completions, b.Name)
		}
	}
	sort.Strings(completions)

	switch {
	case len(completions) == 1:
		m.textInput.SetValue(input[:start] + completions[0])
		m.textInput.CursorEnd()
	case len(completions) > 1:
		m.history = append(m.history, historyEntry{output: "Completions: " + strings.Join(completions, ", ")})
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
	b.WriteString(headerStyle.Render("cxc comptime REPL") + " " + mutedStyle.Render(m.cfg.Syntax+" · cpu "+m.cfg.CPU) + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	reserved := 8
	if m.showHelp {
		reserved += 10
	}
	avail := max(m.height-reserved, 1)
	start := 0
	if len(m.history) > avail {
		start = len(m.history) - avail
	}
	for _, entry := range m.history[start:] {
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isErr {
			b.WriteString(errorStyle.Render(indentLines(entry.output, "  ✗ ")) + "\n")
		} else {
			b.WriteString(resultStyle.Render(indentLines(entry.output, "  → ")) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel() + "\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString(helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render(":emit") + helpDescStyle.Render(" C output  ") +
		helpKeyStyle.Render(":env") + helpDescStyle.Render(" bindings  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit"))
	return b.String()
}

func indentLines(s, first string) string {
	pad := strings.Repeat(" ", lipgloss.Width(first))
	lines := strings.Split(s, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func renderHelpPanel() string {
	help := []struct{ key, desc string }{
		{"↑/↓", "Navigate input history"},
		{"Tab", "Complete forms and bound names"},
		{"Enter", "Evaluate the line"},
		{":env", "List bindings"},
		{":emit", "Show the C output for the session"},
		{":reset", "Restore the builtin environment"},
		{":clear", "Clear history"},
		{":help", "Toggle this help"},
		{":quit", "Exit REPL"},
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help")}
	for _, h := range help {
		lines = append(lines, fmt.Sprintf("  %s  %s", helpKeyStyle.Render(fmt.Sprintf("%-8s", h.key)), helpDescStyle.Render(h.desc)))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func runREPL(cfg *config.Config) error {
	p := tea.NewProgram(newREPLModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
