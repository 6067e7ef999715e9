// Package blocks renders bot answers as Slack Block Kit blocks.
package blocks

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"docent_bot/internal/models"
	"docent_bot/internal/resolve"
)

const (
	// Slack rejects section text longer than this.
	maxSectionText = 3000
	// Slack rejects messages with more blocks than this. Modals allow more.
	maxMessageBlocks = 50
	// header, divider and the overflow note
	maxWhoAtGroups = maxMessageBlocks - 3
)

// Text is a markdown section.
func Text(text string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

// Header is a plain text header.
func Header(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, text, true, false))
}

// Button is one choice of a Buttons block.
type Button struct {
	Text  string
	Value string
	Style slack.Style
}

// Buttons is an actions block; blockID tells interaction handlers which
// prompt was answered.
func Buttons(blockID string, buttons ...Button) slack.Block {
	elems := make([]slack.BlockElement, 0, len(buttons))
	for i, b := range buttons {
		btn := slack.NewButtonBlockElement(fmt.Sprintf("%s_%d", blockID, i), b.Value,
			slack.NewTextBlockObject(slack.PlainTextType, b.Text, true, false))
		if b.Style != "" {
			btn.WithStyle(b.Style)
		}
		elems = append(elems, btn)
	}
	return slack.NewActionBlock(blockID, elems...)
}

// WhoAt renders a who's at result for day. Groups keep their order.
func WhoAt(res models.WhoAtResult, day time.Time) []slack.Block {
	out := []slack.Block{
		Text(fmt.Sprintf("*Who's at the Reserve %s*", day.Format("Monday, January 2"))),
		slack.NewDividerBlock(),
	}
	groups := res.Groups
	var hidden int
	if len(groups) > maxWhoAtGroups {
		hidden = len(groups) - maxWhoAtGroups
		groups = groups[:maxWhoAtGroups]
	}
	for _, g := range groups {
		var b strings.Builder
		fmt.Fprintf(&b, "*%s*", g.Title)
		for _, e := range g.Entries {
			b.WriteString("\n")
			b.WriteString(entryLine(e))
		}
		out = append(out, Text(truncate(b.String())))
	}
	if hidden > 0 {
		out = append(out, Text(fmt.Sprintf("_...and %d more_", hidden)))
	}
	return out
}

func entryLine(e models.WhoAtEntry) string {
	line := fmt.Sprintf("%s: %s", e.Time, strings.Join(e.Who, ", "))
	if e.Where != "" && e.Where != resolve.Unknown {
		line += fmt.Sprintf(" _(%s)_", e.Where)
	}
	return line
}

func truncate(s string) string {
	if len(s) <= maxSectionText {
		return s
	}
	cut := strings.LastIndex(s[:maxSectionText-4], "\n")
	if cut < 0 {
		cut = maxSectionText - 4
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return s[:cut] + "\n..."
}
