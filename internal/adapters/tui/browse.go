// Package tui is a terminal front end for one directory listing. It renders
// the views published by a browse.Controller and turns key presses into
// controller operations.
package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"investhub/internal/application/browse"
	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// viewMsg carries a controller snapshot into the update loop.
type viewMsg browse.View

// mountFailedMsg reports that the initial query could not be dispatched.
type mountFailedMsg struct{ err error }

// viewFeed hands controller views to the update loop. publish never blocks,
// so observers may fire from inside Update; only the newest view is kept.
type viewFeed struct {
	ch chan browse.View
}

func newViewFeed() *viewFeed {
	return &viewFeed{ch: make(chan browse.View, 1)}
}

func (f *viewFeed) publish(v browse.View) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case old := <-f.ch:
			if old.Version > v.Version {
				v = old
			}
		default:
		}
	}
}

// next waits for the following view. It returns nil once ctx is done.
func (f *viewFeed) next(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-f.ch:
			return viewMsg(v)
		case <-ctx.Done():
			return nil
		}
	}
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeFilter
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f4c5c"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e36414"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9a031e"))
)

// Controller is the part of browse.Controller the model drives.
type Controller interface {
	Mount(v url.Values) error
	ApplyFilter(key string, values []string) bool
	ClearFilter(key string) bool
	ClearAll() bool
	SetSortOrder(order listing.SortOrder) bool
	SetSearchText(text string) bool
	TypeSearch(text string)
	LoadMore() bool
	Retry() bool
	View() browse.View
}

// Model is the bubbletea model for one listing.
type Model struct {
	ctrl     Controller
	coll     collection.Collection
	initial  url.Values
	nextView tea.Cmd // re-armed after every view; nil when views arrive by other means

	mode      mode
	input     textinput.Model
	filterIdx int

	view   browse.View
	cursor int
	width  int
	height int
}

// NewModel returns a model that mounts ctrl with initial on Init.
func NewModel(ctrl Controller, coll collection.Collection, initial url.Values) *Model {
	in := textinput.New()
	in.CharLimit = 120
	return &Model{
		ctrl:    ctrl,
		coll:    coll,
		initial: initial,
		input:   in,
		view:    ctrl.View(),
	}
}

// Init mounts the controller off the update loop and starts waiting for views.
func (m *Model) Init() tea.Cmd {
	ctrl, initial := m.ctrl, m.initial
	mount := func() tea.Msg {
		if err := ctrl.Mount(initial); err != nil {
			return mountFailedMsg{err: err}
		}
		return nil
	}
	return tea.Batch(mount, m.nextView)
}

// Update handles controller views, window resizes and key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		v := browse.View(msg)
		if v.Version < m.view.Version {
			return m, m.nextView
		}
		m.view = v
		if m.cursor >= len(v.Items) {
			m.cursor = max(len(v.Items)-1, 0)
		}
		return m, m.nextView
	case mountFailedMsg:
		m.view = browse.View{Version: m.view.Version, Status: listing.StatusError, Query: m.view.Query, Err: msg.err}
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeFilter:
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Items)-1 {
			m.cursor++
		}
	case "/":
		m.mode = modeSearch
		m.input.Prompt = "search: "
		m.input.SetValue(m.view.Query.SearchText)
		return m, m.input.Focus()
	case "f":
		if len(m.coll.Filters) == 0 {
			return m, nil
		}
		m.mode = modeFilter
		m.filterIdx = 0
		m.loadFilterInput()
		return m, m.input.Focus()
	case "s":
		order := listing.SortAsc
		if m.view.Query.Sort == listing.SortAsc {
			order = listing.SortDesc
		}
		m.ctrl.SetSortOrder(order)
	case "m", "enter":
		m.ctrl.LoadMore()
	case "r":
		m.ctrl.Retry()
	case "c":
		m.ctrl.ClearAll()
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		return m, nil
	case "enter":
		m.ctrl.SetSearchText(m.input.Value())
		m.leaveInput()
		return m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.TypeSearch(after)
	}
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		return m, nil
	case "tab":
		m.filterIdx = (m.filterIdx + 1) % len(m.coll.Filters)
		m.loadFilterInput()
		return m, nil
	case "enter":
		key := m.coll.Filters[m.filterIdx].Key
		values := splitValues(m.input.Value())
		if len(values) == 0 {
			m.ctrl.ClearFilter(key)
		} else {
			m.ctrl.ApplyFilter(key, values)
		}
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// loadFilterInput points the input at the selected filter and its current values.
func (m *Model) loadFilterInput() {
	f := m.coll.Filters[m.filterIdx]
	label := f.Label
	if label == "" {
		label = f.Key
	}
	m.input.Prompt = strings.ToLower(label) + ": "
	m.input.SetValue(strings.Join(m.view.Query.Filters[f.Key], ", "))
	m.input.CursorEnd()
}

func (m *Model) leaveInput() {
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
}

// splitValues parses a comma separated filter entry.
func splitValues(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// View renders the listing.
func (m *Model) View() string {
	var b strings.Builder
	v := m.view

	title := m.coll.Title
	if title == "" {
		title = m.coll.Slug
	}
	b.WriteString(titleStyle.Render(title))
	if v.Total != nil {
		fmt.Fprintf(&b, "  %s", dimStyle.Render(fmt.Sprintf("%d results", *v.Total)))
	}
	b.WriteString("\n")
	if qs := listing.EncodeString(v.Query); qs != "" {
		b.WriteString(dimStyle.Render("?"+qs) + "\n")
	}
	b.WriteString("\n")

	for i, it := range v.Items {
		line := it.Title
		if line == "" {
			line = it.Slug
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if i == m.cursor && it.Summary != "" {
			b.WriteString(dimStyle.Render("    "+truncate(it.Summary, m.width-4)) + "\n")
		}
	}

	switch v.Status {
	case listing.StatusLoading:
		b.WriteString(dimStyle.Render("loading...") + "\n")
	case listing.StatusLoadingMore:
		b.WriteString(dimStyle.Render("loading more...") + "\n")
	case listing.StatusError:
		msg := "could not load results"
		if v.Err != nil {
			msg += ": " + v.Err.Error()
		}
		b.WriteString(errorStyle.Render(msg) + "  " + dimStyle.Render("[r] retry") + "\n")
	case listing.StatusLoaded:
		if len(v.Items) == 0 {
			b.WriteString(dimStyle.Render("no results") + "\n")
		}
	}

	b.WriteString("\n")
	if m.mode != modeList {
		b.WriteString(m.input.View() + "\n")
		hint := "[enter] apply  [esc] cancel"
		if m.mode == modeFilter {
			hint += "  [tab] next filter"
		}
		b.WriteString(dimStyle.Render(hint))
		return b.String()
	}
	help := "[/] search  [f] filter  [s] sort  [c] clear  [q] quit"
	if v.HasMore && v.Status == listing.StatusLoaded {
		help = "[m] more  " + help
	}
	b.WriteString(dimStyle.Render(help))
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:max(n-3, 0)]) + "..."
}

// Run drives ctrl from the terminal until the user quits or ctx is done.
// PRE: ctrl has not been mounted
// POST: ctrl is closed
func Run(ctx context.Context, ctrl *browse.Controller, coll collection.Collection, initial url.Values, opts ...tea.ProgramOption) error {
	defer ctrl.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := newProgram(ctx, ctrl, coll, initial, opts...).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// newProgram subscribes a feed to ctrl and returns the program that drains it.
// The feed stops waiting once ctx is done.
func newProgram(ctx context.Context, ctrl *browse.Controller, coll collection.Collection, initial url.Values, opts ...tea.ProgramOption) *tea.Program {
	feed := newViewFeed()
	ctrl.Subscribe(feed.publish)

	m := NewModel(ctrl, coll, initial)
	m.nextView = feed.next(ctx)
	return tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
}
