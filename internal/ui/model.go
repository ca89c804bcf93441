package ui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/labsheets/internal/extract"
	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
	"github.com/nconklindev/labsheets/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateFilePicker state = iota
	stateRegionSelection
	stateProcessing
	stateResults
	stateError
)

const maxColumnWidth = 24

// Options configures the browser.
type Options struct {
	Layout layout.Layout
	Logger *slog.Logger
	// OutputPath maps the input file to the JSON file written by "s".
	OutputPath func(input string) string
}

// Model is the bubbletea model of the workbook browser.
type Model struct {
	state        state
	opts         Options
	filepicker   filepicker.Model
	selectedFile string
	regions      []layout.Region
	available    map[string]bool
	selected     map[int]bool
	cursor       int
	summary      *types.ParseSummary
	current      int
	table        table.Model
	saved        string
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan parseResultMsg
}

type parseResultMsg struct {
	summary *types.ParseSummary
	err     error
}

type fileLoadedMsg struct {
	sheets []string
	err    error
}

type parseCompleteMsg struct {
	summary *types.ParseSummary
	err     error
}

type savedMsg struct {
	path string
	err  error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel starts the browser on the file picker.
func InitialModel(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fp := filepicker.New()
	fp.AllowedTypes = []string{".xlsx", ".xlsm"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(accent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(muted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(muted)

	return Model{
		state:      stateFilePicker,
		opts:       opts,
		filepicker: fp,
		regions:    opts.Layout.Regions,
		selected:   make(map[int]bool),
		progress:   progress.New(progress.WithGradient("#2BB673", "#7BD389")),
	}
}

// Init starts the file picker.
func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

// Update handles input and background messages for the current state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Leave room for title, help text and padding
		m.filepicker.SetHeight(max(msg.Height-14, 5))
		if m.state == stateResults {
			m.table.SetHeight(m.tableHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateRegionSelection:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.regions)-1 {
					m.cursor++
				}
			case " ":
				m.selected[m.cursor] = !m.selected[m.cursor]
			case "a":
				// Select every region whose sheets exist
				for i, r := range m.regions {
					if m.available[r.Name] {
						m.selected[i] = true
					}
				}
			case "n":
				clear(m.selected)
			case "enter":
				if len(m.selectedRegions()) > 0 {
					m.state = stateProcessing
					return m.parseFile()
				}
			}
			return m, nil

		case stateResults:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				return m, tea.Quit
			case "tab":
				m.current = (m.current + 1) % len(m.summary.Regions)
				m.table = m.buildTable()
				return m, nil
			case "shift+tab":
				m.current = (m.current + len(m.summary.Regions) - 1) % len(m.summary.Regions)
				m.table = m.buildTable()
				return m, nil
			case "s":
				return m, m.save()
			}
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd

		case stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.available = make(map[string]bool)
		for _, r := range m.regions {
			m.available[r.Name] = sheetsPresent(r, msg.sheets)
		}
		// Preselect regions the workbook can satisfy
		clear(m.selected)
		for i, r := range m.regions {
			if m.available[r.Name] {
				m.selected[i] = true
			}
		}
		m.cursor = 0
		m.state = stateRegionSelection
		return m, nil

	case parseCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.summary = msg.summary
		m.current = 0
		m.table = m.buildTable()
		m.state = stateResults
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.saved = msg.path
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	// Handle filepicker updates
	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadFile(path)
		}
		return m, cmd
	}

	return m, nil
}

// sheetsPresent reports whether every sheet a region reads exists in the workbook.
func sheetsPresent(r layout.Region, sheets []string) bool {
	for _, rng := range r.Ranges {
		found := false
		for _, s := range sheets {
			if s == rng.Sheet {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(r.Ranges) > 0
}

func (m Model) selectedRegions() []layout.Region {
	var out []layout.Region
	for i, r := range m.regions {
		if m.selected[i] {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		var sheets []string
		err := sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
			sheets = wb.SheetNames()
			return nil
		})
		return fileLoadedMsg{sheets: sheets, err: err}
	}
}

func (m Model) parseFile() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan parseResultMsg, 1)

	cmd := tea.Batch(
		func() tea.Msg {
			// Capture channels for the goroutine
			progressChan := m.progressChan
			resultChan := m.resultChan
			selectedFile := m.selectedFile
			regions := m.selectedRegions()
			logger := m.opts.Logger

			go func() {
				summary, err := extract.ParseRegions(selectedFile, regions, progressChan, logger)
				resultChan <- parseResultMsg{summary: summary, err: err}

				// Close channels
				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		waitForProgress(m.progressChan, m.resultChan),
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan parseResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return parseCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) save() tea.Cmd {
	summary := m.summary
	path := m.selectedFile + ".json"
	if m.opts.OutputPath != nil {
		path = m.opts.OutputPath(m.selectedFile)
	}
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return savedMsg{err: err}
		}
		defer f.Close()
		if err := extract.WriteJSON(f, summary); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: path}
	}
}

func (m Model) tableHeight() int {
	return max(m.height-16, 5)
}

func (m Model) buildTable() table.Model {
	r := m.summary.Regions[m.current]
	var header []string
	var rows [][]string
	if r.Err == nil {
		header, rows = extract.Grid(r.Result)
	}

	cols := make([]table.Column, len(header))
	for i, h := range header {
		w := len(h)
		for _, row := range rows {
			w = max(w, len(row[i]))
		}
		cols[i] = table.Column{Title: h, Width: min(w, maxColumnWidth)}
	}
	trows := make([]table.Row, len(rows))
	for i, row := range rows {
		trows[i] = table.Row(row)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)
	t.SetStyles(TableStyles())
	return t
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateRegionSelection:
		return m.viewRegionSelection()
	case stateProcessing:
		return m.viewProcessing()
	case stateResults:
		return m.viewResults()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🧪 labsheets - Lab Workbook Browser"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a workbook to read"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewRegionSelection() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🧪 Select Regions to Read"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", filepath.Base(m.selectedFile))))
	s.WriteString("\n\n")

	found := 0
	for _, ok := range m.available {
		if ok {
			found++
		}
	}
	if found > 0 {
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("✓ %d region(s) match sheets in this workbook", found)))
		s.WriteString("\n\n")
	}

	for i, r := range m.regions {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		checked := " "
		if m.selected[i] {
			checked = "✓"
		}
		line := fmt.Sprintf("%s [%s] %-22s %-8s %s", cursor, checked, r.Name, r.Kind, r.Ranges[0].Sheet)

		switch {
		case m.cursor == i:
			line = SelectedStyle.Render(line)
		case m.selected[i]:
			line = CheckedStyle.Render(line)
		case !m.available[r.Name]:
			line = UnselectedStyle.Render(line + " (sheet missing)")
		}

		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • space: toggle • a: select all found • n: select none • enter: read • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🧪 Reading..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Reading %d region(s) from %s", len(m.selectedRegions()), filepath.Base(m.selectedFile)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewResults() string {
	var s strings.Builder
	r := m.summary.Regions[m.current]

	s.WriteString(TitleStyle.Render(fmt.Sprintf("✓ %s", r.Name)))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Region %d of %d • %d row(s) read in total",
		m.current+1, len(m.summary.Regions), m.summary.RowsParsed)))
	s.WriteString("\n")

	if r.Err != nil {
		s.WriteString(ErrorStyle.Render("✗ " + r.Err.Error()))
	} else {
		if n := len(r.Result.Groups); n > 0 {
			s.WriteString(CheckedStyle.Render(fmt.Sprintf("%d group(s)", n)))
			s.WriteString("\n")
		}
		s.WriteString(m.table.View())
	}
	s.WriteString("\n")

	if m.saved != "" {
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("Saved %s", m.saved)))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("tab/shift+tab: switch region • ↑/↓: scroll • s: save JSON • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}
