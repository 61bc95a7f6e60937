package study

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down       key.Binding
	Flip           key.Binding
	Edit           key.Binding
	Add            key.Binding
	Delete         key.Binding
	Undo           key.Binding
	Dismiss        key.Binding
	Hard           key.Binding
	Medium         key.Binding
	Easy           key.Binding
	FilterHard     key.Binding
	FilterMedium   key.Binding
	FilterEasy     key.Binding
	Tags           key.Binding
	SelectAll      key.Binding
	Rename         key.Binding
	Save           key.Binding
	SaveAs         key.Binding
	Open           key.Binding
	Help           key.Binding
	Quit           key.Binding
	Left, Right    key.Binding
	Toggle         key.Binding
	Back           key.Binding
	SwitchField    key.Binding
	CommitEdit     key.Binding
	ConfirmPrompt  key.Binding
	CancelPrompt   key.Binding
	ForceQuit      key.Binding
	tagModeBinding []key.Binding
}

func defaultKeyMap() keyMap {
	k := keyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Flip:          key.NewBinding(key.WithKeys(" ", "enter", "f"), key.WithHelp("space", "flip")),
		Edit:          key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Add:           key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add card")),
		Delete:        key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Undo:          key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo delete")),
		Dismiss:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		Hard:          key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "hard")),
		Medium:        key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "medium")),
		Easy:          key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "easy")),
		FilterHard:    key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "show/hide hard")),
		FilterMedium:  key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "show/hide medium")),
		FilterEasy:    key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "show/hide easy")),
		Tags:          key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tag filter")),
		SelectAll:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "select all")),
		Rename:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename box")),
		Save:          key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		SaveAs:        key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save as")),
		Open:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Left:          key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev tag")),
		Right:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next tag")),
		Toggle:        key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle tag")),
		Back:          key.NewBinding(key.WithKeys("esc", "t"), key.WithHelp("esc", "back")),
		SwitchField:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "front/back")),
		CommitEdit:    key.NewBinding(key.WithKeys("esc", "ctrl+s"), key.WithHelp("esc", "done")),
		ConfirmPrompt: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
		CancelPrompt:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		ForceQuit:     key.NewBinding(key.WithKeys("ctrl+c")),
	}
	k.tagModeBinding = []key.Binding{k.Left, k.Right, k.Toggle, k.SelectAll, k.Back}
	return k
}

// browseKeys implements help.KeyMap for the card list.
type browseKeys struct{ k keyMap }

func (b browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{b.k.Flip, b.k.Edit, b.k.Add, b.k.Delete, b.k.Undo, b.k.Tags, b.k.Help, b.k.Quit}
}

func (b browseKeys) FullHelp() [][]key.Binding {
	k := b.k
	return [][]key.Binding{
		{k.Up, k.Down, k.Flip, k.Edit, k.Add},
		{k.Delete, k.Undo, k.Dismiss, k.Hard, k.Medium, k.Easy},
		{k.FilterHard, k.FilterMedium, k.FilterEasy, k.Tags, k.SelectAll},
		{k.Rename, k.Save, k.SaveAs, k.Open, k.Quit},
	}
}

type tagKeys struct{ k keyMap }

func (t tagKeys) ShortHelp() []key.Binding  { return t.k.tagModeBinding }
func (t tagKeys) FullHelp() [][]key.Binding { return [][]key.Binding{t.k.tagModeBinding} }

type editKeys struct{ k keyMap }

func (e editKeys) ShortHelp() []key.Binding {
	return []key.Binding{e.k.SwitchField, e.k.CommitEdit}
}
func (e editKeys) FullHelp() [][]key.Binding { return [][]key.Binding{e.ShortHelp()} }

type promptKeys struct{ k keyMap }

func (p promptKeys) ShortHelp() []key.Binding {
	return []key.Binding{p.k.ConfirmPrompt, p.k.CancelPrompt}
}
func (p promptKeys) FullHelp() [][]key.Binding { return [][]key.Binding{p.ShortHelp()} }
