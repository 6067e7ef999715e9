package slackbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"docent_bot/internal/blocks"
	"docent_bot/internal/models"
	"docent_bot/internal/report"
	"docent_bot/internal/response"
)

const (
	BlockHomeAt    = "HOMEAT"
	BlockNewReport = "NEWREPORT"
	CallbackReport = "report_modal"
)

// Interactions handles button presses and modal submissions.
func (b *Bot) Interactions(c *gin.Context) {
	requestID := c.GetString(ctxRequestID)

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &cb); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "BAD_PAYLOAD",
			Message: "Could not parse interaction payload",
			Details: err.Error(),
		})
		return
	}

	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		for _, action := range cb.ActionCallback.BlockActions {
			action := action
			switch action.BlockID {
			case BlockHomeAt:
				b.background(requestID, func(ctx context.Context, log *slog.Logger) {
					b.homeAt(ctx, log, cb.TriggerID, action.Value)
				})
			case BlockNewReport:
				b.background(requestID, func(ctx context.Context, log *slog.Logger) {
					b.openReportModal(ctx, log, cb.TriggerID, cb.Channel.ID, cb.User.ID, action.Value)
				})
			default:
				b.logger.Debug("unhandled block action", slog.String("block_id", action.BlockID))
			}
		}
	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID == CallbackReport {
			b.background(requestID, func(ctx context.Context, log *slog.Logger) {
				b.submitReport(ctx, log, cb)
			})
		}
	}
	c.Status(http.StatusOK)
}

// homeAt shows a cached who's at answer. It never queries the site: the
// trigger id expires long before a fresh query would finish.
func (b *Bot) homeAt(ctx context.Context, log *slog.Logger, triggerID, which string) {
	offset := 0
	if which == "tomorrow" {
		offset = 1
	}
	day := b.whoat.Day(offset)

	res, ok, err := b.whoat.Cached(ctx, day, "all")
	if err != nil {
		log.WarnContext(ctx, "cache read failed", slog.Any("error", err))
	}
	view := infoModal("Who's at the Reserve", blocks.Text("Hmm don't know that one. Try asking me `at` in a message."))
	if ok {
		view = infoModal("Who's at the Reserve", blocks.WhoAt(res, day)...)
	}
	b.openView(ctx, log, triggerID, view)
}

func (b *Bot) openView(ctx context.Context, log *slog.Logger, triggerID string, view slack.ModalViewRequest) {
	_, err := b.api.OpenViewContext(ctx, triggerID, view)
	if err == nil {
		return
	}
	if strings.Contains(err.Error(), "expired_trigger_id") {
		log.WarnContext(ctx, "trigger expired before modal opened")
		return
	}
	log.ErrorContext(ctx, "open view failed", slog.Any("error", err))
}

func (b *Bot) openReportModal(ctx context.Context, log *slog.Logger, triggerID, channel, user, rtype string) {
	if rtype != models.TypeTrail && rtype != models.TypeDisturbance {
		log.WarnContext(ctx, "unknown report type", slog.String("type", rtype))
		return
	}
	lists, err := b.loadLists(ctx)
	if err != nil {
		log.ErrorContext(ctx, "report lists unavailable", slog.Any("error", err))
		b.ephemeral(ctx, log, channel, user, blocks.Text("Sorry, the report lists aren't loaded yet. Please try again in a few minutes."))
		return
	}
	view, err := reportModal(rtype, channel, lists, b.whoat.Day(0).Location(), time.Now())
	if err != nil {
		log.ErrorContext(ctx, "build report modal", slog.Any("error", err))
		return
	}
	b.openView(ctx, log, triggerID, view)
}

func (b *Bot) submitReport(ctx context.Context, log *slog.Logger, cb slack.InteractionCallback) {
	var meta modalMeta
	if err := json.Unmarshal([]byte(cb.View.PrivateMetadata), &meta); err != nil {
		log.ErrorContext(ctx, "bad modal metadata", slog.Any("error", err))
		return
	}
	sub := parseSubmission(cb.View.State, meta.Type, b.whoat.Day(0).Location())
	sub.SlackUserID = cb.User.ID

	if u, err := b.api.GetUserInfoContext(ctx, cb.User.ID); err != nil {
		log.WarnContext(ctx, "slack user lookup failed", slog.Any("error", err))
	} else {
		sub.SlackEmail = u.Profile.Email
		sub.SlackRealName = u.RealName
	}

	rep, err := b.reports.Create(ctx, sub)
	var reply string
	switch {
	case errors.Is(err, report.ErrUnknownReporter):
		reply = "Sorry, I couldn't match your Slack account to a docent site account, so the report was not filed."
	case errors.Is(err, report.ErrNoPlace):
		reply = "Sorry, a report needs a place."
	case err != nil:
		log.ErrorContext(ctx, "report create failed", slog.Any("error", err))
		reply = "Sorry, I couldn't file that report. Please try again later."
	case rep.ID == 0:
		// Filed on the site but the local copy was not saved, so there is
		// no local number to quote.
		reply = "Thanks! Your report has been filed on the docent site."
		if rep.Warning != "" {
			reply += "\n_" + rep.Warning + "_"
		}
	default:
		reply = fmt.Sprintf("Thanks! Report *%s* has been filed.", report.DisplayID(*rep))
		if rep.Warning != "" {
			reply += "\n_" + rep.Warning + "_"
		}
	}
	b.reply(ctx, log, meta.Channel, cb.User.ID, reply)
}

// reply answers in the originating channel, or by direct message when the
// interaction did not start in one.
func (b *Bot) reply(ctx context.Context, log *slog.Logger, channel, user, text string) {
	if channel != "" {
		b.ephemeral(ctx, log, channel, user, blocks.Text(text))
		return
	}
	if _, _, err := b.api.PostMessageContext(ctx, user, slack.MsgOptionBlocks(blocks.Text(text))); err != nil {
		log.ErrorContext(ctx, "post message failed", slog.Any("error", err))
	}
}

type reportLists struct {
	places   []models.Term
	wildlife []models.Term
	other    []models.Term
}
