// Package study is the interactive terminal view of a card box: browse and
// flip cards, edit them in place, categorize, delete with undo, and filter by
// category and tag.
package study

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
	"github.com/kokistudios/cardbox/internal/session"
	"github.com/kokistudios/cardbox/internal/ui"
)

// Options control rendering.
type Options struct {
	Width    int
	Markdown bool
	// Now drives the undo countdown shown in toasts.
	Now func() time.Time
}

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeTags
	modePrompt
)

type promptKind int

const (
	promptTitle promptKind = iota
	promptSaveAs
	promptOpen
)

// expireMsg fires when an undo window ends so the toast disappears.
type expireMsg struct{ notificationID string }

// countdownMsg redraws the undo countdown once a second.
type countdownMsg struct{}

func countdown() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownMsg{} })
}

type Model struct {
	sess  *session.Session
	state *deck.State
	opts  Options
	keys  keyMap
	help  help.Model

	mode      mode
	cursor    int
	tagCursor int
	flipped   map[string]bool

	editID   string
	front    textarea.Model
	back     textarea.Model
	editBack bool

	prompt promptKind
	input  textinput.Model

	status    string
	statusErr bool
	ticking   bool
	rendered  map[string]string
	width     int
	height    int
}

// New builds the study view over an open session.
func New(sess *session.Session, opts Options) Model {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	front := textarea.New()
	front.Placeholder = "Front"
	front.SetWidth(opts.Width - 4)
	front.SetHeight(4)
	back := textarea.New()
	back.Placeholder = "Back"
	back.SetWidth(opts.Width - 4)
	back.SetHeight(4)

	input := textinput.New()
	input.CharLimit = 512
	input.Width = opts.Width - 10

	m := Model{
		sess:     sess,
		opts:     opts,
		keys:     defaultKeyMap(),
		help:     help.New(),
		flipped:  map[string]bool{},
		front:    front,
		back:     back,
		input:    input,
		rendered: map[string]string{},
		width:    opts.Width,
	}
	m.refresh()
	return m
}

// Run starts the full-screen study view and blocks until the user quits.
func Run(sess *session.Session, opts Options) error {
	p := tea.NewProgram(New(sess, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m *Model) refresh() {
	m.state = m.sess.Snapshot()
	if n := len(m.state.Visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if n := len(m.state.Counts().Tags); m.tagCursor >= n {
		m.tagCursor = max(n-1, 0)
	}
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	ui.Logger.Debug("Study action failed", "err", err)
}

func (m *Model) apply(fn func(*deck.State) error) bool {
	err := m.sess.Apply(fn)
	m.refresh()
	if err != nil {
		m.setError(err)
		return false
	}
	return true
}

func (m Model) selected() (deck.Card, bool) {
	visible := m.state.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return deck.Card{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) moveTo(id string) {
	for i, c := range m.state.Visible() {
		if c.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.front.SetWidth(max(msg.Width-4, 20))
		m.back.SetWidth(max(msg.Width-4, 20))
		return m, nil
	case expireMsg:
		m.refresh()
		return m, nil
	case countdownMsg:
		m.refresh()
		if len(m.state.Pending()) == 0 {
			m.ticking = false
			return m, nil
		}
		return m, countdown()
	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeTags:
			return m.updateTags(msg)
		case modePrompt:
			return m.updatePrompt(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	card, ok := m.selected()

	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.state.Visible())-1 {
			m.cursor++
		}
	case key.Matches(msg, k.Flip):
		if ok {
			m.flipped[card.ID] = !m.flipped[card.ID]
		}
	case key.Matches(msg, k.Edit):
		if ok {
			return m, m.startEdit(card)
		}
	case key.Matches(msg, k.Add):
		var added deck.Card
		if m.apply(func(s *deck.State) error {
			added = s.Add()
			return nil
		}) {
			return m, m.startEdit(added)
		}
	case key.Matches(msg, k.Delete):
		if ok {
			return m, m.deleteCard(card)
		}
	case key.Matches(msg, k.Undo):
		m.undo()
	case key.Matches(msg, k.Dismiss):
		m.dismiss()
	case key.Matches(msg, k.Hard):
		m.categorize(card, ok, deck.Hard)
	case key.Matches(msg, k.Medium):
		m.categorize(card, ok, deck.Medium)
	case key.Matches(msg, k.Easy):
		m.categorize(card, ok, deck.Easy)
	case key.Matches(msg, k.FilterHard):
		m.apply(func(s *deck.State) error { return s.ToggleCategory(deck.Hard) })
	case key.Matches(msg, k.FilterMedium):
		m.apply(func(s *deck.State) error { return s.ToggleCategory(deck.Medium) })
	case key.Matches(msg, k.FilterEasy):
		m.apply(func(s *deck.State) error { return s.ToggleCategory(deck.Easy) })
	case key.Matches(msg, k.Tags):
		m.mode = modeTags
	case key.Matches(msg, k.SelectAll):
		m.selectAll()
	case key.Matches(msg, k.Rename):
		return m, m.startPrompt(promptTitle, m.state.Title)
	case key.Matches(msg, k.Save):
		m.save()
	case key.Matches(msg, k.SaveAs):
		return m, m.startPrompt(promptSaveAs, m.defaultSavePath())
	case key.Matches(msg, k.Open):
		return m, m.startPrompt(promptOpen, filepath.Dir(m.sess.Path())+string(filepath.Separator))
	}
	return m, nil
}

func (m *Model) categorize(card deck.Card, ok bool, c deck.Category) {
	if !ok {
		return
	}
	m.apply(func(s *deck.State) error { return s.SetCategory(card.ID, c) })
	m.moveTo(card.ID)
}

func (m *Model) selectAll() {
	if m.apply(func(s *deck.State) error {
		s.SelectAll()
		return nil
	}) {
		m.setStatus("Showing all cards")
	}
}

func (m *Model) deleteCard(card deck.Card) tea.Cmd {
	var d deck.Deletion
	var deleted bool
	if !m.apply(func(s *deck.State) error {
		d, deleted = s.Delete(card.ID)
		return nil
	}) || !deleted {
		return nil
	}
	delete(m.flipped, card.ID)
	m.setStatus("Card deleted")
	expire := tea.Tick(m.state.UndoWindow(), func(time.Time) tea.Msg {
		return expireMsg{notificationID: d.NotificationID}
	})
	if m.ticking {
		return expire
	}
	m.ticking = true
	return tea.Batch(expire, countdown())
}

func (m *Model) undo() {
	pending := m.state.Pending()
	if len(pending) == 0 {
		m.setStatus("Nothing to undo")
		return
	}
	last := pending[len(pending)-1]
	var restored deck.Card
	if m.apply(func(s *deck.State) error {
		var err error
		restored, err = s.Undo(last.NotificationID)
		return err
	}) {
		m.moveTo(restored.ID)
		m.setStatus("Card restored")
	}
}

func (m *Model) dismiss() {
	pending := m.state.Pending()
	if len(pending) == 0 {
		return
	}
	last := pending[len(pending)-1]
	m.apply(func(s *deck.State) error {
		s.Dismiss(last.NotificationID)
		return nil
	})
	m.status = ""
}

func (m *Model) save() {
	if err := m.sess.Save(); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("Saved %s", m.sess.Path())
}

func (m Model) defaultSavePath() string {
	return filepath.Join(filepath.Dir(m.sess.Path()), savefile.FileName(m.state.Title))
}

// Editing

func (m *Model) startEdit(card deck.Card) tea.Cmd {
	if !m.state.IsEditing(card.ID) {
		if !m.apply(func(s *deck.State) error {
			_, err := s.ToggleEdit(card.ID)
			return err
		}) {
			return nil
		}
	}
	m.mode = modeEdit
	m.editID = card.ID
	m.editBack = false
	m.front.SetValue(card.Front)
	m.back.SetValue(card.Back)
	m.back.Blur()
	m.moveTo(card.ID)
	return m.front.Focus()
}

func (m *Model) commitEdit() {
	id, front, back := m.editID, m.front.Value(), m.back.Value()
	m.apply(func(s *deck.State) error {
		if err := s.SetFront(id, front); err != nil {
			return err
		}
		if err := s.SetBack(id, back); err != nil {
			return err
		}
		if s.IsEditing(id) {
			_, err := s.ToggleEdit(id)
			return err
		}
		return nil
	})
	m.mode = modeBrowse
	m.editID = ""
	m.front.Blur()
	m.back.Blur()
	m.moveTo(id)
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.commitEdit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.CommitEdit):
		m.commitEdit()
		return m, nil
	case key.Matches(msg, m.keys.SwitchField):
		m.editBack = !m.editBack
		if m.editBack {
			m.front.Blur()
			return m, m.back.Focus()
		}
		m.back.Blur()
		return m, m.front.Focus()
	}

	var cmd tea.Cmd
	if m.editBack {
		m.back, cmd = m.back.Update(msg)
	} else {
		m.front, cmd = m.front.Update(msg)
	}
	return m, cmd
}

// Tag filter

func (m Model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	tags := m.state.Counts().Tags
	switch {
	case key.Matches(msg, k.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, k.Back):
		m.mode = modeBrowse
	case key.Matches(msg, k.Left):
		if m.tagCursor > 0 {
			m.tagCursor--
		}
	case key.Matches(msg, k.Right):
		if m.tagCursor < len(tags)-1 {
			m.tagCursor++
		}
	case key.Matches(msg, k.Toggle):
		if m.tagCursor < len(tags) {
			tag := tags[m.tagCursor].Tag
			m.apply(func(s *deck.State) error {
				s.ToggleTag(tag)
				return nil
			})
		}
	case key.Matches(msg, k.SelectAll):
		m.selectAll()
	}
	return m, nil
}

// Prompts

func (m *Model) startPrompt(kind promptKind, initial string) tea.Cmd {
	m.mode = modePrompt
	m.prompt = kind
	m.input.SetValue(initial)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m Model) promptLabel() string {
	switch m.prompt {
	case promptTitle:
		return "Box title"
	case promptSaveAs:
		return "Save as"
	default:
		return "Open deck file"
	}
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CancelPrompt):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.ConfirmPrompt):
		m.mode = modeBrowse
		m.input.Blur()
		m.submitPrompt(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(value string) {
	switch m.prompt {
	case promptTitle:
		if m.apply(func(s *deck.State) error {
			s.SetTitle(value)
			return nil
		}) {
			m.setStatus("Renamed to %q", value)
		}
	case promptSaveAs:
		if value == "" {
			return
		}
		if err := m.sess.SaveAs(value); err != nil {
			m.setError(err)
			return
		}
		m.setStatus("Saved %s", value)
	case promptOpen:
		m.open(value)
	}
}

// open loads the deck typed into the prompt. An empty answer behaves like a
// cancelled file picker.
func (m *Model) open(path string) {
	picker := savefile.PickerFunc(func(context.Context) (string, bool, error) {
		return path, path != "", nil
	})
	opened, err := m.sess.OpenWith(context.Background(), picker)
	if err != nil {
		var pe *savefile.ParseError
		if errors.As(err, &pe) {
			m.setError(fmt.Errorf("load failed: %w", err))
		} else {
			m.setError(err)
		}
		return
	}
	if !opened {
		return
	}
	m.cursor = 0
	m.tagCursor = 0
	m.flipped = map[string]bool{}
	m.refresh()
	m.setStatus("Opened %s", m.sess.Path())
}
