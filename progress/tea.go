package progress

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Faint(true)
)

// TeaRenderer draws the board as a block of spinner rows that update in
// place. It needs a terminal on out.
type TeaRenderer struct {
	program *tea.Program
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// NewTeaRenderer creates a renderer drawing to out. It never reads input and
// leaves signal handling to the caller.
func NewTeaRenderer(out io.Writer) *TeaRenderer {
	return &TeaRenderer{
		program: tea.NewProgram(newBoardModel(),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
}

// Start runs the program in the background.
func (r *TeaRenderer) Start() error {
	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		}
	}()
	return nil
}

// Update sends the row to the program.
func (r *TeaRenderer) Update(row Row) {
	r.program.Send(rowMsg(row))
}

// Stop draws the final frame and waits for the program to exit.
func (r *TeaRenderer) Stop() error {
	r.program.Send(stopMsg{})
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

var _ Renderer = (*TeaRenderer)(nil)

///////////////////////////////////////////////////////////////////////////////
// MODEL

type rowMsg Row

type stopMsg struct{}

type boardModel struct {
	spinner  spinner.Model
	rows     []Row
	quitting bool
}

func newBoardModel() boardModel {
	return boardModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(activeStyle)),
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case rowMsg:
		row := Row(msg)
		for len(m.rows) <= row.Index {
			m.rows = append(m.rows, Row{Index: len(m.rows)})
		}
		m.rows[row.Index] = row
		return m, nil

	case stopMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m boardModel) View() string {
	var b strings.Builder
	for _, row := range m.rows {
		switch row.Status {
		case StatusPending:
			b.WriteString(pendingStyle.Render("· " + row.Label))
		case StatusDone:
			b.WriteString(doneStyle.Render("✓ " + row.Message))
		case StatusFailed:
			b.WriteString(failedStyle.Render("✗ " + row.Message))
		default:
			if m.quitting {
				// interrupted before the task finished
				b.WriteString(pendingStyle.Render("· " + row.Message))
			} else {
				b.WriteString(m.spinner.View() + " " + activeStyle.Render(row.Message))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
