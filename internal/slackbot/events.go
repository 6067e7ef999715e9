package slackbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"docent_bot/internal/blocks"
	"docent_bot/internal/models"
	"docent_bot/internal/report"
	"docent_bot/internal/response"
	"docent_bot/internal/whoat"
)

const (
	msgDiveDeep   = "I am going to need to dive deep to find that out for you."
	msgNoRetrieve = "Sorry, I couldn't retrieve who's at the Reserve right now. Please try again in a bit."
	msgNoReports  = "Sorry, I couldn't look up reports right now."
	msgNotAdmin   = "Sorry, only bot admins can delete cache entries."
)

const helpText = "*Sorry didn't hear you - I was sleeping.*\nYou can ask for:\n" +
	"*reports* - Show most recent trail/disturbance reports.\n" +
	"*new* - Create a report.\n" +
	"_report_id_ - Show an existing report, e.g. DR-12.\n" +
	"*at* [_where_] [_tomorrow_] - Who's doing what at the Reserve today.\n"

// Events handles the Events API endpoint.
func (b *Bot) Events(c *gin.Context) {
	body := c.MustGet(ctxBody).([]byte)
	requestID := c.GetString(ctxRequestID)

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "BAD_EVENT",
			Message: "Could not parse event",
			Details: err.Error(),
		})
		return
	}

	switch ev.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, challenge.Challenge)
		return
	case slackevents.CallbackEvent:
		b.dispatch(requestID, ev.InnerEvent)
	}
	c.Status(http.StatusOK)
}

func (b *Bot) dispatch(requestID string, inner slackevents.EventsAPIInnerEvent) {
	switch data := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		if data.BotID != "" {
			return
		}
		b.background(requestID, func(ctx context.Context, log *slog.Logger) {
			b.HandleText(ctx, log, data.Channel, data.User, data.TimeStamp, data.Text)
		})
	case *slackevents.MessageEvent:
		// Direct messages only; channel chatter reaches us as mentions.
		if data.ChannelType != "im" || data.BotID != "" || data.SubType != "" {
			return
		}
		b.background(requestID, func(ctx context.Context, log *slog.Logger) {
			b.HandleText(ctx, log, data.Channel, data.User, data.TimeStamp, data.Text)
		})
	}
}

// HandleText answers one chat message.
func (b *Bot) HandleText(ctx context.Context, log *slog.Logger, channel, user, ts, text string) {
	cmd := ParseCommand(text)
	log = log.With(slog.String("user", user), slog.Int("command", int(cmd.Kind)))
	log.InfoContext(ctx, "slack command", slog.String("text", text))

	switch cmd.Kind {
	case CmdAt:
		b.at(ctx, log, channel, user, ts, cmd)
	case CmdAtDelete:
		if cmd.Key == "" {
			b.ephemeral(ctx, log, channel, user, blocks.Text("Usage: at delete key"))
			return
		}
		if !b.admins[user] {
			b.ephemeral(ctx, log, channel, user, blocks.Text(msgNotAdmin))
			return
		}
		if err := b.whoat.Forget(ctx, cmd.Key); err != nil {
			log.ErrorContext(ctx, "cache delete failed", slog.String("key", cmd.Key), slog.Any("error", err))
			b.ephemeral(ctx, log, channel, user, blocks.Text("Sorry, I couldn't delete that key."))
			return
		}
		b.ephemeral(ctx, log, channel, user, blocks.Text(fmt.Sprintf("Deleted cache key `%s`.", cmd.Key)))
	case CmdNewReport:
		b.ephemeral(ctx, log, channel, user,
			blocks.Text("What kind of report?"),
			blocks.Buttons(BlockNewReport,
				blocks.Button{Text: "Trail", Value: "trail"},
				blocks.Button{Text: "Disturbance", Value: "disturbance", Style: slack.StylePrimary},
			))
	case CmdReports:
		b.recentReports(ctx, log, channel, user)
	case CmdShowReport:
		rep, err := b.reports.Get(ctx, cmd.Report)
		if err != nil {
			log.InfoContext(ctx, "report lookup failed", slog.String("report", cmd.Report), slog.Any("error", err))
			b.ephemeral(ctx, log, channel, user, blocks.Text(fmt.Sprintf("I don't know report %s.", cmd.Report)))
			return
		}
		b.ephemeral(ctx, log, channel, user, blocks.Text(reportDetail(*rep, b.whoat.Day(0).Location())))
	default:
		b.ephemeral(ctx, log, channel, user,
			blocks.Text(helpText),
			blocks.Buttons(BlockHomeAt,
				blocks.Button{Text: "Who's at today", Value: "today", Style: slack.StylePrimary},
				blocks.Button{Text: "Tomorrow", Value: "tomorrow"},
			))
	}
}

func (b *Bot) at(ctx context.Context, log *slog.Logger, channel, user, ts string, cmd Command) {
	offset := 0
	if cmd.Tomorrow {
		offset = 1
	}
	day := b.whoat.Day(offset)
	key := whoat.CacheKey(day, cmd.Where)
	log = log.With(slog.String("key", key))

	res, ok, err := b.whoat.Cached(ctx, day, cmd.Where)
	if err != nil {
		log.WarnContext(ctx, "cache read failed", slog.Any("error", err))
	}
	if !ok {
		b.ephemeral(ctx, log, channel, user, blocks.Text(msgDiveDeep))
		res, err = b.whoat.Refresh(ctx, day, cmd.Where)
		if err != nil {
			log.ErrorContext(ctx, "who at failed", slog.Any("error", err))
			b.ephemeral(ctx, log, channel, user, blocks.Text(msgNoRetrieve))
			return
		}
	}

	if ts != "" {
		if _, _, err := b.api.DeleteMessageContext(ctx, channel, ts); err != nil {
			log.DebugContext(ctx, "could not delete request message", slog.Any("error", err))
		}
	}
	b.ephemeral(ctx, log, channel, user, blocks.WhoAt(res, day)...)
}

func (b *Bot) recentReports(ctx context.Context, log *slog.Logger, channel, user string) {
	reps, err := b.reports.Recent(ctx, 10)
	if err != nil {
		log.ErrorContext(ctx, "list reports failed", slog.Any("error", err))
		b.ephemeral(ctx, log, channel, user, blocks.Text(msgNoReports))
		return
	}
	if len(reps) == 0 {
		b.ephemeral(ctx, log, channel, user, blocks.Text("No reports yet."))
		return
	}
	loc := b.whoat.Day(0).Location()
	lines := make([]string, 0, len(reps))
	for _, r := range reps {
		lines = append(lines, fmt.Sprintf("*%s* %s %s - %s",
			report.DisplayID(r), r.InteractionTime.In(loc).Format("1/2 3:04pm"), r.Place, r.Reporter))
	}
	b.ephemeral(ctx, log, channel, user, blocks.Header("Recent reports"), blocks.Text(strings.Join(lines, "\n")))
}

func reportDetail(r models.Report, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s)\n", report.DisplayID(r), r.Type)
	fmt.Fprintf(&b, "*When:* %s\n", r.InteractionTime.In(loc).Format("Mon Jan 2 3:04pm"))
	fmt.Fprintf(&b, "*Where:* %s\n", r.Place)
	if r.WildlifeIssues != "" {
		fmt.Fprintf(&b, "*Wildlife:* %s\n", r.WildlifeIssues)
	}
	if r.OtherIssues != "" {
		fmt.Fprintf(&b, "*Other:* %s\n", r.OtherIssues)
	}
	fmt.Fprintf(&b, "*Reporter:* %s\n", r.Reporter)
	if r.Details != "" {
		fmt.Fprintf(&b, "*Details:* %s", r.Details)
	}
	return b.String()
}
