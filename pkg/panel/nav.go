package panel

import "github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"

// navigator caches the media file list for the panel file browser.
// The browser shows five rows per page and selects by row index, so
// the list must stay stable between a refresh and the print key.
type navigator struct {
	media printer.Media
	files []string
}

func newNavigator(media printer.Media) *navigator {
	return &navigator{media: media}
}

// reset reloads the file list from media. An unmounted or unreadable
// card yields an empty list.
func (n *navigator) reset() {
	n.files = nil
	if !n.media.Mounted() {
		return
	}
	files, err := n.media.Files()
	if err != nil {
		return
	}
	n.files = files
}

func (n *navigator) count() int {
	return len(n.files)
}

// name returns the file at the given absolute index.
func (n *navigator) name(i int) (string, bool) {
	if i < 0 || i >= len(n.files) {
		return "", false
	}
	return n.files[i], true
}

// displayName trims a file name to what fits in a panel text row.
func displayName(name string) string {
	const rowWidth = 17
	if len(name) > rowWidth {
		return name[:rowWidth]
	}
	return name
}
