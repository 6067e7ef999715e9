package slackbot

import (
	"regexp"
	"strings"
)

type CommandKind int

const (
	CmdHelp CommandKind = iota
	CmdAt
	CmdAtDelete
	CmdNewReport
	CmdReports
	CmdShowReport
)

// Command is a parsed chat request.
type Command struct {
	Kind     CommandKind
	Where    string // activity type tag, "all" by default
	Tomorrow bool
	Key      string // cache key for CmdAtDelete
	Report   string // display id for CmdShowReport
}

var (
	mentionRE  = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)
	reportIDRE = regexp.MustCompile(`(?i)^(TR|DR)-\d+$`)
)

func isTomorrow(word string) bool {
	return strings.HasPrefix(strings.ToLower(word), "tom")
}

// ParseCommand understands:
//
//	at [where] [tom(orrow)]
//	at tom(orrow)
//	at delete <key>
//	new [rep(ort)]
//	rep(orts)
//	TR-<n> | DR-<n>
//
// Anything else is a request for help.
func ParseCommand(text string) Command {
	words := strings.Fields(mentionRE.ReplaceAllString(text, " "))
	if len(words) == 0 {
		return Command{Kind: CmdHelp}
	}
	first := strings.ToLower(words[0])

	switch {
	case first == "at":
		cmd := Command{Kind: CmdAt, Where: "all"}
		if len(words) < 2 {
			return cmd
		}
		switch {
		case strings.EqualFold(words[1], "delete"):
			cmd = Command{Kind: CmdAtDelete}
			if len(words) == 3 {
				cmd.Key = words[2]
			}
		case isTomorrow(words[1]):
			cmd.Tomorrow = true
		default:
			cmd.Where = words[1]
			cmd.Tomorrow = len(words) > 2 && isTomorrow(words[2])
		}
		return cmd
	case first == "new":
		return Command{Kind: CmdNewReport}
	case strings.HasPrefix(first, "rep"):
		return Command{Kind: CmdReports}
	case reportIDRE.MatchString(words[0]):
		return Command{Kind: CmdShowReport, Report: strings.ToUpper(words[0])}
	}
	return Command{Kind: CmdHelp}
}
