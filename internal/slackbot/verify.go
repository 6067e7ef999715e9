package slackbot

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"docent_bot/internal/response"
)

const (
	ctxBody      = "slack_body"
	ctxRequestID = "request_id"

	maxBody = 1 << 20
)

// VerifySignature rejects requests not signed with the app's signing secret.
// The verified body is kept on the context and restored on the request.
func VerifySignature(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "BAD_BODY",
				Message: "Could not read request body",
			})
			return
		}

		sv, err := slack.NewSecretsVerifier(c.Request.Header, secret)
		if err == nil {
			_, _ = sv.Write(body)
			err = sv.Ensure()
		}
		if err != nil {
			logger.Warn("slack signature rejected", slog.String("path", c.FullPath()), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_SIGNATURE",
				Message: "Request signature could not be verified",
			})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(ctxBody, body)
		c.Set(ctxRequestID, uuid.NewString())
		c.Next()
	}
}

// IgnoreRetries acknowledges Slack's redeliveries without handling them
// again; the first delivery is already being worked on.
func IgnoreRetries() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Slack-Retry-Num") != "" {
			c.Header("X-Slack-No-Retry", "1")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
