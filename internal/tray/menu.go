package tray

import "fmt"

// MenuItem is one entry in the tray context menu, selecting a live window.
type MenuItem struct {
	WindowID uint64
	Label    string
}

// BuildMenu projects the current live window list into a transient menu.
// The menu is recomputed on each open rather than incrementally maintained,
// so it can never hold a stale entry for a closed window.
func BuildMenu(windows []WindowInfo) []MenuItem {
	items := make([]MenuItem, 0, len(windows))
	for _, w := range windows {
		label := fmt.Sprintf("#%d: %s", w.ID, w.Title)
		if w.Quake {
			label += " [quake]"
		}
		items = append(items, MenuItem{WindowID: w.ID, Label: label})
	}
	return items
}
