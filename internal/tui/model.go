package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
	"ragqa/internal/summarizer"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ingest(ctx context.Context, paths []string) (domain.IngestReport, error)
	Ask(ctx context.Context, q domain.Query) (domain.Answer, error)
	Status(ctx context.Context) domain.Status
}

const maxTopK = 10

type screen int

const (
	screenMenu screen = iota
	screenAsk
)

var menuItems = []string{"Ingest documents", "Ask a question", "Exit"}

type (
	statusMsg domain.Status
	ingestMsg struct {
		report domain.IngestReport
		err    error
	}
	answerMsg struct {
		answer domain.Answer
		err    error
	}
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   RAGPort
	sentences *summarizer.FrequencySummarizer

	screen   screen
	menu     int
	input    textinput.Model
	viewport viewport.Model
	topK     int
	busy     bool
	ready    bool

	answer *domain.Answer
	cursor int
	status string
}

// New creates a new TUI model instance.
func New(ctx context.Context, service RAGPort, topK int) Model {
	if topK < 1 || topK > maxTopK {
		topK = 3
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		service:   service,
		sentences: summarizer.NewFrequencySummarizer(),
		input:     ti,
		viewport:  vp,
		topK:      topK,
		status:    "Choose an action.",
	}
}

func (m Model) Init() tea.Cmd { return m.statusCmd() }

func (m Model) statusCmd() tea.Cmd {
	return func() tea.Msg { return statusMsg(m.service.Status(m.ctx)) }
}

func (m Model) ingestCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.service.Ingest(m.ctx, nil)
		return ingestMsg{report: report, err: err}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	q := domain.Query{Text: question, K: m.topK}
	return func() tea.Msg {
		answer, err := m.service.Ask(m.ctx, q)
		return answerMsg{answer: answer, err: err}
	}
}

// Update handles key, window and service events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case statusMsg:
		st := domain.Status(msg)
		if st.IndexLoaded {
			m.status = fmt.Sprintf("Index %s: %d chunks (%s).", shortID(st.IndexID), st.Chunks, st.EmbeddingModel)
		} else {
			m.status = fmt.Sprintf("No index yet. %d text and %d PDF files in %s.", st.TextFiles, st.PDFFiles, st.DocumentsDir)
		}
		return m, nil

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Ingest failed: " + msg.err.Error()
			return m, nil
		}
		r := msg.report
		m.status = fmt.Sprintf("Indexed %d documents (%d txt, %d pdf) into %d chunks in %s.",
			r.Documents, r.TextFiles, r.PDFFiles, r.Chunks, r.Elapsed.Round(time.Millisecond))
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.answer = &msg.answer
			m.cursor = 0
			m.status = fmt.Sprintf("%d sources for %q", len(msg.answer.Sources), msg.answer.Question)
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.screen == screenMenu {
			return m.updateMenu(msg)
		}
		return m.updateAsk(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.menu = (m.menu - 1 + len(menuItems)) % len(menuItems)
	case "down", "j":
		m.menu = (m.menu + 1) % len(menuItems)
	case "1", "2", "3":
		m.menu = int(msg.Runes[0] - '1')
		return m.selectMenu()
	case "enter":
		return m.selectMenu()
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) selectMenu() (tea.Model, tea.Cmd) {
	switch m.menu {
	case 0:
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Ingesting documents..."
		return m, m.ingestCmd()
	case 1:
		m.screen = screenAsk
		m.input.Focus()
		return m, textinput.Blink
	default:
		return m, tea.Quit
	}
}

func (m Model) updateAsk(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenMenu
		m.input.Blur()
		return m, nil
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" || m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Thinking..."
		return m, m.askCmd(q)
	case "tab":
		m.topK = m.topK%maxTopK + 1
		return m, nil
	case "down":
		if m.answer != nil && len(m.answer.Sources) > 0 {
			m.cursor = (m.cursor + 1) % len(m.answer.Sources)
			m.viewport.SetContent(m.renderAnswer())
		}
		return m, nil
	case "up":
		if m.answer != nil && len(m.answer.Sources) > 0 {
			m.cursor = (m.cursor - 1 + len(m.answer.Sources)) % len(m.answer.Sources)
			m.viewport.SetContent(m.renderAnswer())
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("RAG Question Answering")
	status := statusStyle.Render(m.status)

	if m.screen == screenMenu {
		var b strings.Builder
		for i, item := range menuItems {
			line := fmt.Sprintf("%d. %s", i+1, item)
			if i == m.menu {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		return header + "\n\n" + b.String() + "\n" + status
	}

	hint := hintStyle.Render(fmt.Sprintf("top-k %d (tab)  ↑/↓ sources  esc menu", m.topK))
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "  " + hint + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	a := m.answer
	var b strings.Builder
	b.WriteString(a.Text)
	if len(a.Sources) == 0 {
		return b.String()
	}
	s := a.Sources[m.cursor]
	fmt.Fprintf(&b, "\n\nSource %d/%d  %s  (chunk %d of %d)  score=%.3f\n\n",
		m.cursor+1, len(a.Sources), s.Path, s.ChunkIndex+1, s.TotalChunks, s.Score)
	b.WriteString(m.highlightBestSentence(s.Preview, a.Question))
	return b.String()
}

func (m Model) highlightBestSentence(text, query string) string {
	best := m.sentences.BestSentence(text, query)
	if best == "" {
		return text
	}
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
