package publisher

import "strings"

// destinationFlair is appended to the body for platforms with their own
// posting conventions. Unlisted destinations get the template as-is.
var destinationFlair = map[string]string{
	"reddit":   "\n\n(Posted via scheduled campaign)",
	"telegram": "\n\n📢",
}

// customizeTitle renders a campaign title template for one destination.
func customizeTitle(template, destination string) string {
	return strings.ReplaceAll(template, "{destination}", destination)
}

// customizeBody renders a campaign body template for one destination. The
// {title} token receives the already-rendered title, then the destination's
// flair is appended.
func customizeBody(template, title, destination string) string {
	out := strings.ReplaceAll(template, "{title}", title)
	out = strings.ReplaceAll(out, "{destination}", destination)
	if flair, ok := destinationFlair[destination]; ok {
		out += flair
	}
	return out
}
