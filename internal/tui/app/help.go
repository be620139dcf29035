package app

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# MultiPlayer

| Key | Action |
|-----|--------|
| h | Host a session and open the lobby as a listen server |
| j | Search and join the first matching session |
| l | Leave the current session |
| ? | Toggle this help |
| q | Quit |

Joining looks for %[1]s sessions.
Hosting a session that already exists replaces it.
Messages fade after a few seconds.
`

// renderHelp renders the help overlay for the given width.
func renderHelp(matchType string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(fmt.Sprintf(helpMarkdown, matchType))
}
