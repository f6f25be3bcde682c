package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/matheuskafuri/xupdate/internal/render"
)

type focusPane int

const (
	focusList focusPane = iota
	focusStats
)

type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeHelp
)

type App struct {
	loader   *feed.Loader
	apiBase  string
	interval time.Duration
	loc      *time.Location

	// records is the unfiltered sequence on screen; view is what survives the filter.
	records     []feed.Record
	view        []feed.Record
	unreachable bool
	status      feed.Status
	note        string
	stats       string

	cursor      int
	statsScroll int
	focus       focusPane
	mode        mode
	inflight    int

	width  int
	height int

	filterInput textinput.Model
	spinner     spinner.Model
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Loader       *feed.Loader
	APIBase      string
	PollInterval time.Duration
	Location     *time.Location
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Filter updates..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &App{
		loader:      opts.Loader,
		apiBase:     opts.APIBase,
		interval:    interval,
		loc:         loc,
		status:      feed.StatusChecking,
		stats:       "Loading…",
		filterInput: ti,
		spinner:     sp,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.startUpdates(), a.loadStatsCmd(), a.pollCmd())
}

// startUpdates flips the indicator to checking and kicks off a load. Loads are
// not deduplicated; whichever finishes last wins.
func (a *App) startUpdates() tea.Cmd {
	a.status = feed.StatusChecking
	a.note = ""
	a.inflight++

	loader := a.loader
	load := func() tea.Msg {
		return updatesLoadedMsg{res: loader.LoadUpdates(context.Background())}
	}
	return tea.Batch(load, a.spinner.Tick)
}

func (a *App) loadStatsCmd() tea.Cmd {
	loader := a.loader
	return func() tea.Msg {
		return statsLoadedMsg{text: loader.LoadStats(context.Background())}
	}
}

// cachedRecordsCmd re-reads the cached sequence; filtering never hits the network.
func (a *App) cachedRecordsCmd() tea.Cmd {
	loader := a.loader
	return func() tea.Msg {
		return cachedRecordsMsg{records: loader.CachedRecords()}
	}
}

func (a *App) pollCmd() tea.Cmd {
	return tea.Tick(a.interval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (a *App) applyFilter() {
	a.view = render.Filter(a.records, a.filterInput.Value())
	if a.cursor >= len(a.view) {
		a.cursor = max(0, len(a.view)-1)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case updatesLoadedMsg:
		if a.inflight > 0 {
			a.inflight--
		}
		a.status = msg.res.Status
		a.note = render.Note(msg.res, a.loc)
		a.unreachable = msg.res.Unreachable()
		a.records = msg.res.Records
		a.applyFilter()
		return a, nil

	case statsLoadedMsg:
		a.stats = msg.text
		a.statsScroll = 0
		return a, nil

	case cachedRecordsMsg:
		a.unreachable = false
		a.records = msg.records
		a.applyFilter()
		return a, nil

	case pollTickMsg:
		return a, tea.Batch(a.startUpdates(), a.pollCmd())

	case spinner.TickMsg:
		if a.inflight > 0 {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.view)-1 {
			a.cursor++
		} else if a.focus == focusStats {
			a.statsScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
		} else if a.focus == focusStats && a.statsScroll > 0 {
			a.statsScroll--
		}
		return a, nil
	case "g", "home":
		a.cursor = 0
		return a, nil
	case "G", "end":
		a.cursor = max(0, len(a.view)-1)
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusStats
		} else {
			a.focus = focusList
		}
		return a, nil
	case "/":
		a.mode = modeFilter
		a.filterInput.Focus()
		return a, textinput.Blink
	case "r":
		return a, tea.Batch(a.startUpdates(), a.loadStatsCmd())
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := a.filterInput.Value()

	switch msg.String() {
	case "enter":
		a.mode = modeNormal
		a.filterInput.Blur()
		return a, nil
	case "esc":
		a.mode = modeNormal
		a.filterInput.Blur()
		a.filterInput.SetValue("")
		if before == "" {
			return a, nil
		}
		a.cursor = 0
		return a, a.cachedRecordsCmd()
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	// Only re-render on actual value changes, not cursor moves etc.
	if a.filterInput.Value() != before {
		a.cursor = 0
		return a, tea.Batch(cmd, a.cachedRecordsCmd())
	}
	return a, cmd
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  xupdate")
	}

	if a.mode == modeHelp {
		return a.renderHelp()
	}

	// Layout calculations
	headerHeight := 2
	filterHeight := 1
	noteHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - noteHeight - statusHeight - 2 // borders
	if contentHeight < 3 {
		contentHeight = 3
	}

	listWidth := int(float64(a.width) * 0.6)
	statsWidth := a.width - listWidth - 1 // gap

	// Header
	headerLeft := headerStyle.Render("xupdate")
	headerRight := renderIndicator(a.status)
	if a.inflight > 0 {
		headerRight = a.spinner.View() + " " + headerRight
	}
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight
	apiLine := apiLineStyle.Render("API: " + cleanText(a.apiBase))

	filter := a.filterInput.View()

	// List pane
	innerListW := listWidth - 4 // border + padding
	var listContent string
	if a.unreachable {
		listContent = renderPlaceholder(render.UnreachableTitle, render.UnreachableText, innerListW, contentHeight)
	} else {
		listContent = renderList(render.Items(a.view, a.loc), a.cursor, contentHeight, innerListW)
	}
	listStyle := listPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	// Stats pane
	statsContent := renderStats(a.stats, statsWidth-4, contentHeight, a.statsScroll)
	statsStyle := statsPaneStyle
	if a.focus == focusStats {
		statsStyle = statsPaneActiveStyle
	}
	statsPane := statsStyle.Width(statsWidth - 2).Height(contentHeight).Render(statsContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", statsPane)

	note := noteStyle.Width(a.width).Render(truncateStr(cleanText(a.note), a.width-2))

	status := renderStatusBar(len(a.view), len(a.records), a.filterInput.Value(), a.width, a.mode == modeFilter, a.inflight > 0)

	return lipgloss.JoinVertical(lipgloss.Left, header, apiLine, filter, content, note, status)
}

func renderIndicator(s feed.Status) string {
	switch s {
	case feed.StatusOnline:
		return statusOnlineStyle.Render("● " + s.Label())
	case feed.StatusOffline:
		return statusOfflineStyle.Render("● " + s.Label())
	default:
		return statusCheckingStyle.Render("● " + s.Label())
	}
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("xupdate")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move through updates (or scroll stats)\n" +
		"  g/G           Jump to first/last update\n" +
		"  tab           Switch focus between updates and stats\n\n" +
		dim.Render("Actions") + "\n" +
		"  r             Refresh updates and stats\n" +
		"  /             Filter updates\n" +
		"  esc           Clear filter (while filtering)\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit\n\n" +
		dim.Render(fmt.Sprintf("Updates refresh every %s.", shortDuration(a.interval)))

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// shortDuration drops zero trailing units ("1m0s" -> "1m").
func shortDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
