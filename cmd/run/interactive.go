package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// replModule is the module REPL lines are interpreted into, so variables
// persist between lines.
const replModule = "repl"

const maxHistory = 200

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// lineKind styles one history line.
type lineKind int

const (
	lineInput lineKind = iota
	lineOutput
	lineError
)

type historyLine struct {
	text string
	kind lineKind
}

type replModel struct {
	ctx     context.Context
	app     *app
	input   textinput.Model
	history []historyLine
	out     strings.Builder
	errOut  strings.Builder
}

func newReplModel(ctx context.Context, a *app) *replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("> ")
	ti.Placeholder = `System.print("hello")`
	ti.Width = 72
	ti.Focus()

	m := &replModel{ctx: ctx, app: a, input: ti}
	a.stdout = &m.out
	a.stderr = &m.errOut
	return m
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "ctrl+d", "esc":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line != "" {
				m.eval(line)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// eval runs line in the REPL module and records what it printed.
func (m *replModel) eval(line string) {
	m.push(line, lineInput)
	m.out.Reset()
	m.errOut.Reset()

	_, _ = m.app.vm.Interpret(m.ctx, replModule, line)

	for _, l := range splitLines(m.out.String()) {
		m.push(l, lineOutput)
	}
	for _, l := range splitLines(m.errOut.String()) {
		m.push(l, lineError)
	}
}

func (m *replModel) push(text string, kind lineKind) {
	m.history = append(m.history, historyLine{text: text, kind: kind})
	if n := len(m.history) - maxHistory; n > 0 {
		m.history = m.history[n:]
	}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Wren REPL"))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d foreign classes bound", len(m.app.reg.Classes()))))
	b.WriteString("\n\n")

	for _, l := range m.history {
		switch l.kind {
		case lineInput:
			b.WriteString(promptStyle.Render("> ") + inputStyle.Render(l.text))
		case lineOutput:
			b.WriteString(resultStyle.Render(l.text))
		case lineError:
			b.WriteString(errorStyle.Render(l.text))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • esc quit"))
	return b.String()
}

// runInteractive starts the TUI on a terminal and a plain line loop
// otherwise.
func runInteractive(ctx context.Context, a *app) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runLines(ctx, a, os.Stdin, os.Stdout)
	}
	p := tea.NewProgram(newReplModel(ctx, a), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// runLines interprets each line of r. Output goes to the app's writers.
func runLines(ctx context.Context, a *app, r io.Reader, prompt io.Writer) error {
	sc := bufio.NewScanner(r)
	for {
		if f, ok := prompt.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(prompt, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		_, _ = a.vm.Interpret(ctx, replModule, line)
		if a.vm.Fatal() != nil {
			return a.vm.Fatal()
		}
	}
}
