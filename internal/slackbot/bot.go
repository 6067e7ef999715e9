// Package slackbot serves the Slack Events and Interactivity endpoints.
package slackbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"docent_bot/internal/cache"
	"docent_bot/internal/models"
	"docent_bot/internal/report"
)

const workTimeout = 30 * time.Second

// API is the subset of the Slack Web API the bot calls. *slack.Client
// satisfies it.
type API interface {
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	DeleteMessageContext(ctx context.Context, channel, messageTimestamp string) (string, string, error)
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

// WhoAt is the cache backed who's at lookup.
type WhoAt interface {
	Day(offsetDays int) time.Time
	Cached(ctx context.Context, day time.Time, where string) (models.WhoAtResult, bool, error)
	Refresh(ctx context.Context, day time.Time, where string) (models.WhoAtResult, error)
	Forget(ctx context.Context, key string) error
}

type Reports interface {
	Create(ctx context.Context, sub report.Submission) (*models.Report, error)
	Recent(ctx context.Context, limit int) ([]models.Report, error)
	Get(ctx context.Context, name string) (*models.Report, error)
}

type Options struct {
	SigningSecret string
	AdminUserIDs  []string
	// Lists holds the cached report dialog lists.
	Lists cache.Store
}

type Bot struct {
	api     API
	whoat   WhoAt
	reports Reports
	lists   cache.Store
	secret  string
	admins  map[string]bool
	logger  *slog.Logger

	// run executes work that must outlive the HTTP acknowledgement.
	run func(func())
}

func New(api API, whoat WhoAt, reports Reports, opts Options, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[string]bool, len(opts.AdminUserIDs))
	for _, id := range opts.AdminUserIDs {
		admins[id] = true
	}
	return &Bot{
		api:     api,
		whoat:   whoat,
		reports: reports,
		lists:   opts.Lists,
		secret:  opts.SigningSecret,
		admins:  admins,
		logger:  logger.With(slog.String("component", "slackbot")),
		run:     func(f func()) { go f() },
	}
}

// Register mounts the Slack endpoints under /slack.
func (b *Bot) Register(r gin.IRouter) {
	g := r.Group("/slack", VerifySignature(b.secret, b.logger))
	g.POST("/events", IgnoreRetries(), b.Events)
	g.POST("/interactions", b.Interactions)
}

// background runs fn detached from the request with its own deadline.
func (b *Bot) background(requestID string, fn func(ctx context.Context, log *slog.Logger)) {
	b.run(func() {
		log := b.logger.With(slog.String("request_id", requestID))
		defer func() {
			if r := recover(); r != nil {
				log.Error("slack work panicked", slog.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), workTimeout)
		defer cancel()
		fn(ctx, log)
	})
}

func (b *Bot) ephemeral(ctx context.Context, log *slog.Logger, channel, user string, blocks ...slack.Block) {
	if _, err := b.api.PostEphemeralContext(ctx, channel, user, slack.MsgOptionBlocks(blocks...)); err != nil {
		log.ErrorContext(ctx, "post ephemeral failed", slog.String("channel", channel), slog.Any("error", err))
	}
}
