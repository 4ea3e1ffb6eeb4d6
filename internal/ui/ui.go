package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cadence/internal/behavior"
	"cadence/internal/library"
	"cadence/internal/models"
	"cadence/internal/playback"
	"cadence/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryView ViewState = iota
	EditView
)

// seekStep is how far one seek keypress moves within the track.
const seekStep = 5 * time.Second

// Model represents the player application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	session    *playback.Session
	tracks     *repositories.TrackRepository
	tracker    *behavior.Tracker
	reconciler *library.Reconciler
	roots      []string

	width  int
	height int

	libraryList list.Model
	state       models.PlaybackState
	stateCh     chan models.PlaybackState
	status      string
	err         error

	editFp     models.Fingerprint
	editInputs []textinput.Model
	editFocus  int

	help help.Model
	keys keyMap
}

// NewModel creates the player model and hooks it to the session's state
// notifications.
func NewModel(
	ctx context.Context,
	session *playback.Session,
	tracks *repositories.TrackRepository,
	tracker *behavior.Tracker,
	reconciler *library.Reconciler,
	roots []string,
) *Model {
	m := &Model{
		ctx:        ctx,
		view:       LibraryView,
		session:    session,
		tracks:     tracks,
		tracker:    tracker,
		reconciler: reconciler,
		roots:      roots,
		state:      session.Snapshot(),
		stateCh:    make(chan models.PlaybackState, 16),
		help:       help.New(),
		keys:       newKeyMap(),
	}

	m.libraryList = list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	m.libraryList.Title = "Library"
	m.libraryList.SetShowHelp(false)

	session.Notify(func() { m.pushState(session.Snapshot()) })
	return m
}

// pushState hands a snapshot to the Elm loop, dropping the oldest queued
// one when the UI lags behind position updates.
func (m *Model) pushState(state models.PlaybackState) {
	for {
		select {
		case m.stateCh <- state:
			return
		default:
			select {
			case <-m.stateCh:
			default:
			}
		}
	}
}

// Init loads the library and starts listening for playback state.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadLibrary(), m.waitForState())
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.tracks.ListActive()
		if err != nil {
			return libraryLoadedMsg{err: err}
		}
		affinities, err := m.tracker.Affinities()
		if err != nil {
			return libraryLoadedMsg{err: err}
		}
		return libraryLoadedMsg{tracks: tracks, affinities: affinities}
	}
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg{state: <-m.stateCh}
	}
}

func (m *Model) rescan() tea.Cmd {
	return func() tea.Msg {
		result, err := m.reconciler.Scan(m.ctx, m.roots)
		return scanDoneMsg{result: result, err: err}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.libraryList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		}

	case stateMsg:
		m.state = msg.state
		return m, m.waitForState()

	case libraryLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track, affinity: msg.affinities[track.Fingerprint]}
		}
		m.libraryList.SetItems(items)
		m.libraryList.Title = fmt.Sprintf("Library (%d tracks)", len(msg.tracks))
		if m.width > 0 {
			m.libraryList.SetSize(m.width-4, m.height-8)
		}
		return m, nil

	case scanDoneMsg:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("scan failed: %v", msg.err))
			return m, nil
		}
		m.status = styles.ok.Render(msg.result.String())
		return m, m.loadLibrary()

	case actionErrMsg:
		m.status = styles.warn.Render(msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the list filter owns the keyboard, transport keys type into
	// the filter instead of acting.
	if m.libraryList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.libraryList, cmd = m.libraryList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggle):
		return m, m.transport(m.session.Toggle)

	case key.Matches(msg, m.keys.next):
		return m, m.transport(m.session.Next)

	case key.Matches(msg, m.keys.previous):
		return m, m.transport(m.session.Previous)

	case key.Matches(msg, m.keys.shuffle):
		m.session.ToggleShuffle()
		return m, nil

	case key.Matches(msg, m.keys.repeat):
		m.session.CycleRepeat()
		return m, nil

	case key.Matches(msg, m.keys.seekFwd):
		return m, m.transport(func() error { return m.session.Seek(m.state.Position + seekStep) })

	case key.Matches(msg, m.keys.seekBack):
		return m, m.transport(func() error { return m.session.Seek(m.state.Position - seekStep) })

	case key.Matches(msg, m.keys.volUp):
		return m, m.transport(func() error { return m.session.AdjustVolume(+1) })

	case key.Matches(msg, m.keys.volDown):
		return m, m.transport(func() error { return m.session.AdjustVolume(-1) })

	case key.Matches(msg, m.keys.refresh):
		m.status = styles.warn.Render("rescanning…")
		return m, m.rescan()

	case key.Matches(msg, m.keys.play):
		if item, ok := m.libraryList.SelectedItem().(trackItem); ok {
			track := item.track
			return m, m.transport(func() error { return m.session.Play(&track) })
		}
		return m, nil

	case key.Matches(msg, m.keys.edit):
		if item, ok := m.libraryList.SelectedItem().(trackItem); ok {
			m.openEditor(item.track)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

// transport runs one session action off the Elm loop so a slow catalog
// write never freezes rendering.
func (m *Model) transport(action func() error) tea.Cmd {
	return func() tea.Msg {
		if err := action(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m *Model) openEditor(track models.Track) {
	m.editFp = track.Fingerprint
	m.editInputs = make([]textinput.Model, 3)
	for i, value := range []string{track.DisplayTitle(), track.DisplayArtist(), track.DisplayAlbum()} {
		input := textinput.New()
		input.SetValue(value)
		input.CharLimit = 120
		m.editInputs[i] = input
	}
	m.editFocus = 0
	m.editInputs[0].Focus()
	m.view = EditView
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = LibraryView
		return m, nil

	case "tab", "shift+tab", "down", "up":
		m.editInputs[m.editFocus].Blur()
		if msg.String() == "shift+tab" || msg.String() == "up" {
			m.editFocus = (m.editFocus + len(m.editInputs) - 1) % len(m.editInputs)
		} else {
			m.editFocus = (m.editFocus + 1) % len(m.editInputs)
		}
		m.editInputs[m.editFocus].Focus()
		return m, nil

	case "enter":
		fp := m.editFp
		title := m.editInputs[0].Value()
		artist := m.editInputs[1].Value()
		album := m.editInputs[2].Value()
		m.view = LibraryView
		return m, tea.Sequence(
			func() tea.Msg {
				if err := m.tracks.SetOverrides(fp, title, artist, album); err != nil {
					return actionErrMsg{err: err}
				}
				return nil
			},
			m.loadLibrary(),
		)
	}

	var cmd tea.Cmd
	m.editInputs[m.editFocus], cmd = m.editInputs[m.editFocus].Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case EditView:
		return m.renderEditor()
	default:
		return m.renderLibrary()
	}
}

func (m *Model) renderLibrary() string {
	body := m.libraryList.View()
	footer := m.renderTransportLine()
	if m.status != "" {
		footer += "\n" + m.status
	}
	return fmt.Sprintf("%s\n%s\n%s", body, footer, m.help.View(m.keys))
}

func (m *Model) renderTransportLine() string {
	symbol := "■"
	line := "nothing playing"
	switch m.state.Transport {
	case models.TransportPlaying:
		symbol = "▶"
	case models.TransportPaused:
		symbol = "❚❚"
	}

	if current := m.state.Current; current != nil {
		line = fmt.Sprintf("%s — %s  %s / %s",
			current.DisplayArtist(),
			current.DisplayTitle(),
			formatDuration(m.state.Position),
			formatDuration(current.Duration()),
		)
	}

	modes := fmt.Sprintf("vol %3.0f%%  shuffle %s  repeat %s",
		m.state.Volume*100,
		onOff(m.state.Shuffle),
		m.state.Repeat,
	)

	return fmt.Sprintf("%s %s\n%s", styles.ok.Render(symbol), line, styles.help.Render(modes))
}

func (m *Model) renderEditor() string {
	labels := []string{"Title", "Artist", "Album"}
	out := styles.title.Render("Edit track tags") + "\n\n"
	for i, input := range m.editInputs {
		out += fmt.Sprintf("%s\n%s\n\n", labels[i], input.View())
	}
	out += styles.help.Render("enter save • tab next field • esc cancel")
	return out
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
