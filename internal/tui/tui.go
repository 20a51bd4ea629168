package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feed"
	"github.com/Guyuepp/clip-board/internal/usecase/mutation"
)

// Session is the part of the session flow the feed view drives
type Session interface {
	Viewer(ctx context.Context) (domain.Viewer, error)
	Logout(ctx context.Context) error
	SavePreferences(ctx context.Context, prefs domain.UIPreferences) error
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeCategories
)

type Model struct {
	ctx       context.Context
	loader    *feed.Loader
	mutations *mutation.Service
	session   Session
	viewer    domain.Viewer

	params   domain.QueryParams
	list     list.Model
	input    textinput.Model
	mode     mode
	fetching bool
	callout  []string
	status   string
}

// ReloadMsg is sent by the session reload hook after a logout
type ReloadMsg struct{}

type feedLoadedMsg struct {
	params domain.QueryParams
	err    error
}

type pageLoadedMsg struct {
	params domain.QueryParams
	err    error
}

type mutationMsg struct {
	postID int64
	kind   mutation.Kind
	err    error
}

type deletedMsg struct {
	postID int64
	err    error
}

type statusMsg string

type viewerMsg struct {
	viewer domain.Viewer
	err    error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	calloutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	viewerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))
)

func New(ctx context.Context, loader *feed.Loader, mutations *mutation.Service, session Session, prefs domain.UIPreferences) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Clip board"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle

	in := textinput.New()
	in.CharLimit = 100

	return Model{
		ctx:       ctx,
		loader:    loader,
		mutations: mutations,
		session:   session,
		params: domain.QueryParams{
			TitleQuery: prefs.TitleQuery,
			Categories: prefs.Categories,
			Liked:      prefs.Liked,
			Saved:      prefs.Saved,
		},
		list:  l,
		input: in,
	}
}

// Params returns the query of the active view
func (m Model) Params() domain.QueryParams {
	return m.params
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(m.params), m.loadViewer())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-7)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case feedLoadedMsg:
		if msg.params.Key() != m.params.Key() {
			return m, nil
		}
		m.setError(msg.err)
		m.sync()
		sentinel := m.checkSentinel()
		return m, sentinel

	case pageLoadedMsg:
		if msg.params.Key() != m.params.Key() {
			return m, nil
		}
		m.fetching = false
		m.setError(msg.err)
		m.sync()
		return m, nil

	case mutationMsg:
		m.sync()
		m.setError(msg.err)
		return m, nil

	case deletedMsg:
		m.sync()
		if msg.err == nil {
			m.status = fmt.Sprintf("Deleted post %d", msg.postID)
		}
		m.setError(msg.err)
		return m, nil

	case viewerMsg:
		if msg.err != nil {
			logrus.Debugf("viewer not loaded: %v", msg.err)
			return m, nil
		}
		m.viewer = msg.viewer
		return m, nil

	case ReloadMsg:
		m.params.Liked = false
		m.params.Saved = false
		m.viewer = domain.Viewer{}
		m.callout = nil
		m.status = "Logged out"
		return m, tea.Batch(m.load(m.params), m.loadViewer())

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch, modeCategories:
		return m.handleInputKeys(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "l":
		return m.execute(func(id int64) mutation.Command { return mutation.ToggleLike{PostID: id} })

	case "s":
		return m.execute(func(id int64) mutation.Command { return mutation.ToggleSave{PostID: id} })

	case "m":
		if !m.viewer.User.CanModerate() {
			m.status = "Only moderators can approve posts"
			return m, nil
		}
		return m.execute(func(id int64) mutation.Command { return mutation.ToggleModerated{PostID: id} })

	case "c":
		if !m.viewer.User.CanModerate() {
			m.status = "Only moderators can edit categories"
			return m, nil
		}
		if p, ok := m.selected(); ok {
			names := make([]string, len(p.Categories))
			for i, c := range p.Categories {
				names[i] = string(c)
			}
			return m.startInput(modeCategories, strings.Join(names, ","), "ORO,RANA"), textinput.Blink
		}
		return m, nil

	case "/":
		return m.startInput(modeSearch, m.params.TitleQuery, "title"), textinput.Blink

	case "x":
		if p, ok := m.selected(); ok {
			if !m.viewer.User.CanDelete(p) {
				m.status = "Only the author or a moderator can delete this post"
				return m, nil
			}
			return m, m.delete(p.ID)
		}
		return m, nil

	case "r":
		m.callout = nil
		return m, m.refresh(m.params)

	case "L":
		m.params.Liked = !m.params.Liked
		return m, tea.Batch(m.load(m.params), m.savePreferences())

	case "S":
		m.params.Saved = !m.params.Saved
		return m, tea.Batch(m.load(m.params), m.savePreferences())

	case "O":
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	sentinel := m.checkSentinel()
	return m, tea.Batch(cmd, sentinel)
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		current := m.mode
		m.mode = modeBrowse
		m.input.Blur()

		if current == modeSearch {
			m.params.TitleQuery = value
			return m, tea.Batch(m.load(m.params), m.savePreferences())
		}

		cats, err := parseCategories(value)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		return m.execute(func(id int64) mutation.Command {
			return mutation.EditCategories{PostID: id, Categories: cats}
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startInput(md mode, value, placeholder string) Model {
	m.mode = md
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.Focus()
	return m
}

func parseCategories(value string) ([]domain.Category, error) {
	if value == "" {
		return []domain.Category{}, nil
	}
	var res []domain.Category
	for _, raw := range strings.Split(value, ",") {
		c, err := domain.ParseCategory(raw)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (m Model) selected() (domain.Post, bool) {
	item, ok := m.list.SelectedItem().(postItem)
	if !ok {
		return domain.Post{}, false
	}
	return item.post, true
}

// execute applies the optimistic patch right away and waits for the server in a command
func (m Model) execute(build func(id int64) mutation.Command) (tea.Model, tea.Cmd) {
	p, ok := m.selected()
	if !ok {
		return m, nil
	}

	pending, err := m.mutations.Execute(m.ctx, m.params, build(p.ID))
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.callout = nil
	m.sync()

	ctx := m.ctx
	return m, func() tea.Msg {
		_, err := pending.Wait(ctx)
		return mutationMsg{postID: pending.PostID, kind: pending.Kind, err: err}
	}
}

// checkSentinel treats the last list row as the sentinel element
func (m *Model) checkSentinel() tea.Cmd {
	n := len(m.list.Items())
	visible := n > 0 && m.list.Index() == n-1

	done := m.loader.OnSentinelVisibility(m.ctx, m.params, visible)
	if done == nil {
		return nil
	}
	m.fetching = true
	params := m.params
	return func() tea.Msg {
		return pageLoadedMsg{params: params, err: <-done}
	}
}

func (m *Model) sync() {
	m.list.SetItems(toItems(m.loader.Items(m.params)))
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	if !domain.IsUserVisible(err) {
		logrus.Debugf("hidden feed error: %v", err)
		return
	}
	m.callout = domain.ExtractErrorMessages(err)
}

func (m Model) load(params domain.QueryParams) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		_, err := loader.Load(ctx, params)
		if errors.Is(err, domain.ErrStale) {
			err = nil
		}
		return feedLoadedMsg{params: params, err: err}
	}
}

func (m Model) loadViewer() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		v, err := session.Viewer(ctx)
		return viewerMsg{viewer: v, err: err}
	}
}

func (m Model) refresh(params domain.QueryParams) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		_, err := loader.Refresh(ctx, params)
		return feedLoadedMsg{params: params, err: err}
	}
}

func (m Model) delete(id int64) tea.Cmd {
	mutations, ctx := m.mutations, m.ctx
	return func() tea.Msg {
		return deletedMsg{postID: id, err: mutations.Delete(ctx, id)}
	}
}

func (m Model) savePreferences() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	prefs := domain.UIPreferences{
		TitleQuery: m.params.TitleQuery,
		Categories: m.params.Categories,
		Liked:      m.params.Liked,
		Saved:      m.params.Saved,
	}
	return func() tea.Msg {
		if err := session.SavePreferences(ctx, prefs); err != nil {
			logrus.Warnf("failed to save preferences: %v", err)
		}
		return nil
	}
}

func (m Model) logout() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		if err := session.Logout(ctx); err != nil {
			return statusMsg("Logout failed: " + err.Error())
		}
		// the session reload hook delivers ReloadMsg
		return nil
	}
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(viewerStyle.Render(m.viewerLine()))
	s.WriteString("\n")
	s.WriteString(m.list.View())
	s.WriteString("\n")

	switch m.mode {
	case modeSearch:
		s.WriteString("Search title: " + m.input.View() + "\n")
	case modeCategories:
		s.WriteString("Categories: " + m.input.View() + "\n")
	}

	if len(m.callout) > 0 {
		s.WriteString(calloutStyle.Render(strings.Join(m.callout, "\n")))
		s.WriteString("\n")
	} else if m.fetching {
		s.WriteString(statusStyle.Render("Loading more posts..."))
		s.WriteString("\n")
	} else if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(m.help()))
	return s.String()
}

func (m Model) viewerLine() string {
	v := m.viewer
	if !v.SignedIn() {
		return "Not signed in, run with -login <token>"
	}
	line := fmt.Sprintf("%s (%s)", v.Name(), v.User.Role)
	if v.Follower {
		line += " • following"
	}
	if v.Subscriber {
		line += " • subscribed"
	}
	return line
}

// help lists only the keys the viewer may use
func (m Model) help() string {
	keys := []string{"l: like", "s: save"}
	if m.viewer.User.CanModerate() {
		keys = append(keys, "c: categories", "m: approve")
	}
	if p, ok := m.selected(); ok && m.viewer.User.CanDelete(p) {
		keys = append(keys, "x: delete")
	}
	keys = append(keys, "/: search", "L/S: liked/saved", "r: refresh")
	if m.viewer.SignedIn() {
		keys = append(keys, "O: logout")
	}
	return strings.Join(append(keys, "q: quit"), " • ")
}
