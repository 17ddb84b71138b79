package statsui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	ForceQuit    key.Binding
	Quit         key.Binding
	PrevTab      key.Binding
	NextTab      key.Binding
	Scroll       key.Binding
	WidenWindow  key.Binding
	NarrowWindow key.Binding
	PrevDay      key.Binding
	NextDay      key.Binding
	Today        key.Binding
	Reload       key.Binding
	Settings     key.Binding
	Subjects     key.Binding
	Top          key.Binding
	Bottom       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ForceQuit:    key.NewBinding(key.WithKeys("ctrl+c")),
		Quit:         key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		PrevTab:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("left/right", "nav")),
		NextTab:      key.NewBinding(key.WithKeys("right", "l")),
		Scroll:       key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("up/down/pgup/pgdn", "scroll")),
		WidenWindow:  key.NewBinding(key.WithKeys("="), key.WithHelp("-/=", "window")),
		NarrowWindow: key.NewBinding(key.WithKeys("-")),
		PrevDay:      key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "day")),
		NextDay:      key.NewBinding(key.WithKeys("]")),
		Today:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "back to today")),
		Reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Settings:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "settings")),
		Subjects:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit subjects")),
		Top:          key.NewBinding(key.WithKeys("g", "home")),
		Bottom:       key.NewBinding(key.WithKeys("G", "end")),
	}
}

// helpFor lists the bindings that do something on the given tab.
func (k keyMap) helpFor(tab int) []key.Binding {
	switch tab {
	case tabTrend:
		return []key.Binding{k.PrevTab, k.Scroll, k.Subjects, k.WidenWindow, k.Settings, k.Quit}
	case tabDay:
		return []key.Binding{k.PrevTab, k.PrevDay, k.Today, k.Settings, k.Quit}
	default:
		return []key.Binding{k.PrevTab, k.Scroll, k.WidenWindow, k.Settings, k.Reload, k.Quit}
	}
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, strings.ToUpper(h.Desc[:1])+h.Desc[1:]+": "+h.Key)
	}
	return strings.Join(parts, "  ")
}
