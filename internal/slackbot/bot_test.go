package slackbot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docent_bot/internal/cache"
	"docent_bot/internal/models"
	"docent_bot/internal/report"
	"docent_bot/internal/tasks"
	"docent_bot/internal/whoat"
)

const secret = "8f742231b10e8888abcd99yyyzzz85a5"

type posted struct {
	channel, user string
	text          string
}

type fakeAPI struct {
	mu        sync.Mutex
	ephemeral []posted
	messages  []string
	deleted   []string
	views     []slack.ModalViewRequest
	viewErr   error
	user      *slack.User
}

// msgText renders the block text of a message, which is all the tests care about.
func msgText(options ...slack.MsgOption) string {
	_, values, _ := slack.UnsafeApplyMsgOptions("", "C1", "https://slack.test/api/", options...)
	var set []map[string]any
	_ = json.Unmarshal([]byte(values.Get("blocks")), &set)
	var parts []string
	for _, b := range set {
		if txt, ok := b["text"].(map[string]any); ok {
			parts = append(parts, fmt.Sprint(txt["text"]))
		}
		if b["type"] == "actions" {
			parts = append(parts, "[buttons:"+fmt.Sprint(b["block_id"])+"]")
		}
	}
	return strings.Join(parts, "\n")
}

func (f *fakeAPI) PostEphemeralContext(_ context.Context, channel, user string, options ...slack.MsgOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, posted{channel: channel, user: user, text: msgText(options...)})
	return "1", nil
}

func (f *fakeAPI) PostMessageContext(_ context.Context, channel string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, channel+": "+msgText(options...))
	return channel, "1", nil
}

func (f *fakeAPI) DeleteMessageContext(_ context.Context, channel, ts string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channel+"/"+ts)
	return channel, ts, nil
}

func (f *fakeAPI) OpenViewContext(_ context.Context, _ string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
	return &slack.ViewResponse{}, f.viewErr
}

func (f *fakeAPI) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	if f.user == nil {
		return nil, errors.New("user_not_found")
	}
	return f.user, nil
}

type fakeQuerier struct {
	calls int
	err   error
}

func (q *fakeQuerier) WhoAt(_ context.Context, day, where string) (models.WhoAtResult, error) {
	q.calls++
	if q.err != nil {
		return models.WhoAtResult{}, q.err
	}
	var r models.WhoAtResult
	r.Add("Info Station", models.WhoAtEntry{Time: "9:00am", Who: []string{"L Turrini-Smith"}, Where: "unk"})
	return r, nil
}

type fakeReports struct {
	subs    []report.Submission
	err     error
	unsaved bool
}

func (f *fakeReports) Create(_ context.Context, sub report.Submission) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subs = append(f.subs, sub)
	r := &models.Report{Type: sub.Type, Place: sub.Place.Name, Warning: "API returned error but report likely created"}
	if !f.unsaved {
		r.ID = 7
	}
	return r, nil
}

func (f *fakeReports) Recent(context.Context, int) ([]models.Report, error) {
	r := models.Report{Type: models.TypeTrail, Place: "Cypress Grove", Reporter: "Jane Doe",
		InteractionTime: time.Date(2024, 7, 11, 16, 30, 0, 0, time.UTC)}
	r.ID = 3
	return []models.Report{r}, nil
}

func (f *fakeReports) Get(_ context.Context, name string) (*models.Report, error) {
	return nil, report.ErrNotFound
}

type harness struct {
	bot     *Bot
	api     *fakeAPI
	query   *fakeQuerier
	reports *fakeReports
	store   cache.Store
	router  *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.NewRedisStore(rdb, "", 0, logger)
	loc, err := time.LoadLocation(whoat.DefaultTimezone)
	require.NoError(t, err)

	h := &harness{api: &fakeAPI{}, query: &fakeQuerier{}, reports: &fakeReports{}, store: store}
	lookup := whoat.NewLookup(h.query, store, loc, logger)
	h.bot = New(h.api, lookup, h.reports, Options{SigningSecret: secret, AdminUserIDs: []string{"UADMIN"}, Lists: store}, logger)
	h.bot.run = func(f func()) { f() }

	h.router = gin.New()
	h.bot.Register(h.router)
	return h
}

func sign(req *http.Request, body string) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func (h *harness) postEvent(t *testing.T, body string, signed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signed {
		sign(req, body)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) postInteraction(t *testing.T, payload string) *httptest.ResponseRecorder {
	t.Helper()
	body := url.Values{"payload": {payload}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sign(req, body)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func mention(text string) string {
	return `{"type":"event_callback","team_id":"T1","api_app_id":"A1","event":{"type":"app_mention","user":"U1","text":"` +
		text + `","ts":"1720713600.000100","channel":"C1","event_ts":"1720713600.000100"}}`
}

func TestURLVerification(t *testing.T) {
	h := newHarness(t)
	w := h.postEvent(t, `{"type":"url_verification","token":"x","challenge":"kelp-forest"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kelp-forest", w.Body.String())
}

func TestRejectsUnsignedRequests(t *testing.T) {
	h := newHarness(t)
	w := h.postEvent(t, mention("<@UBOT> at"), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, h.query.calls)
}

func TestIgnoresRetries(t *testing.T) {
	h := newHarness(t)
	body := mention("<@UBOT> at")
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	sign(req, body)
	req.Header.Set("X-Slack-Retry-Num", "1")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, h.query.calls)
	assert.Empty(t, h.api.ephemeral)
}

func TestAtMissThenHit(t *testing.T) {
	h := newHarness(t)

	w := h.postEvent(t, mention("<@UBOT> at"), true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.query.calls)
	require.Len(t, h.api.ephemeral, 2)
	assert.Equal(t, msgDiveDeep, h.api.ephemeral[0].text)
	assert.Contains(t, h.api.ephemeral[1].text, "*Info Station*\n9:00am: L Turrini-Smith")
	assert.Equal(t, []string{"C1/1720713600.000100"}, h.api.deleted)

	h.postEvent(t, mention("<@UBOT> at"), true)
	assert.Equal(t, 1, h.query.calls, "second ask is served from the cache")
	require.Len(t, h.api.ephemeral, 3)
	assert.Contains(t, h.api.ephemeral[2].text, "Info Station")
}

func TestAtFailureIsApologetic(t *testing.T) {
	h := newHarness(t)
	h.query.err = errors.New("dial tcp: i/o timeout")

	h.postEvent(t, mention("<@UBOT> at info_station tomorrow"), true)
	require.Len(t, h.api.ephemeral, 2)
	assert.Equal(t, msgNoRetrieve, h.api.ephemeral[1].text)
	assert.NotContains(t, h.api.ephemeral[1].text, "timeout")
}

func TestAtDeleteRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, "20240711:all", models.NobodyHere(), cache.AlwaysWrite))

	h.postEvent(t, mention("<@UBOT> at delete 20240711:all"), true)
	require.Len(t, h.api.ephemeral, 1)
	assert.Equal(t, msgNotAdmin, h.api.ephemeral[0].text)

	body := strings.Replace(mention("<@UBOT> at delete 20240711:all"), `"user":"U1"`, `"user":"UADMIN"`, 1)
	h.postEvent(t, body, true)
	require.Len(t, h.api.ephemeral, 2)
	assert.Contains(t, h.api.ephemeral[1].text, "Deleted cache key")

	var out models.WhoAtResult
	ok, err := h.store.Get(ctx, "20240711:all", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHelpAndReports(t *testing.T) {
	h := newHarness(t)

	h.postEvent(t, mention("<@UBOT> hello there"), true)
	require.Len(t, h.api.ephemeral, 1)
	assert.Contains(t, h.api.ephemeral[0].text, "You can ask for")
	assert.Contains(t, h.api.ephemeral[0].text, "[buttons:"+BlockHomeAt+"]")

	h.postEvent(t, mention("<@UBOT> reports"), true)
	require.Len(t, h.api.ephemeral, 2)
	assert.Contains(t, h.api.ephemeral[1].text, "Recent reports\n*TR-3* 7/11 9:30am Cypress Grove - Jane Doe")

	h.postEvent(t, mention("<@UBOT> DR-99"), true)
	require.Len(t, h.api.ephemeral, 3)
	assert.Equal(t, "I don't know report DR-99.", h.api.ephemeral[2].text)
}

func TestHomeAtUsesCacheOnly(t *testing.T) {
	h := newHarness(t)
	payload := `{"type":"block_actions","trigger_id":"T123","user":{"id":"U1"},"channel":{"id":"C1"},
		"actions":[{"block_id":"HOMEAT","action_id":"HOMEAT_0","value":"today","type":"button"}]}`

	w := h.postInteraction(t, payload)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.api.views, 1)
	assert.Zero(t, h.query.calls)
	raw, _ := json.Marshal(h.api.views[0])
	assert.Contains(t, string(raw), "Hmm don't know that one")

	day := h.bot.whoat.Day(0)
	_, err := h.bot.whoat.Refresh(context.Background(), day, "all")
	require.NoError(t, err)

	h.postInteraction(t, payload)
	require.Len(t, h.api.views, 2)
	raw, _ = json.Marshal(h.api.views[1])
	assert.Contains(t, string(raw), "L Turrini-Smith")
}

func TestExpiredTriggerIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.api.viewErr = errors.New("expired_trigger_id")
	payload := `{"type":"block_actions","trigger_id":"T123","user":{"id":"U1"},
		"actions":[{"block_id":"HOMEAT","action_id":"HOMEAT_1","value":"tomorrow","type":"button"}]}`
	w := h.postInteraction(t, payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.api.ephemeral)
}

func seedLists(t *testing.T, store cache.Store) {
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, tasks.KeyPlaces, []models.Term{{Name: "Bird Island", ID: "p1"}}, cache.AlwaysWrite))
	require.NoError(t, store.Put(ctx, tasks.KeyWildlifeIssues, []models.Term{{Name: "Drones", ID: "w1"}}, cache.AlwaysWrite))
	require.NoError(t, store.Put(ctx, tasks.KeyOtherIssues, []models.Term{{Name: "Trash", ID: "o1"}}, cache.AlwaysWrite))
}

func TestNewReportFlow(t *testing.T) {
	h := newHarness(t)

	h.postEvent(t, mention("<@UBOT> new report"), true)
	require.Len(t, h.api.ephemeral, 1)
	assert.Contains(t, h.api.ephemeral[0].text, "[buttons:"+BlockNewReport+"]")

	press := `{"type":"block_actions","trigger_id":"T9","user":{"id":"U1"},"channel":{"id":"C1"},
		"actions":[{"block_id":"NEWREPORT","action_id":"NEWREPORT_1","value":"disturbance","type":"button"}]}`

	// Lists not primed yet.
	h.postInteraction(t, press)
	require.Len(t, h.api.ephemeral, 2)
	assert.Contains(t, h.api.ephemeral[1].text, "lists aren't loaded")

	seedLists(t, h.store)
	h.postInteraction(t, press)
	require.Len(t, h.api.views, 1)
	view := h.api.views[0]
	assert.Equal(t, CallbackReport, view.CallbackID)
	assert.JSONEq(t, `{"type":"disturbance","channel":"C1"}`, view.PrivateMetadata)
	raw, _ := json.Marshal(view)
	assert.Contains(t, string(raw), "Bird Island")
	assert.Contains(t, string(raw), "Drones")

	h.api.user = &slack.User{ID: "U1", RealName: "Jane Doe", Profile: slack.UserProfile{Email: "jane@example.org"}}
	submit := `{"type":"view_submission","user":{"id":"U1"},"view":{"callback_id":"report_modal",
		"private_metadata":"{\"type\":\"disturbance\",\"channel\":\"C1\"}",
		"state":{"values":{
			"place":{"place":{"type":"static_select","selected_option":{"value":"p1","text":{"type":"plain_text","text":"Bird Island"}}}},
			"wildlife":{"wildlife":{"type":"multi_static_select","selected_options":[{"value":"w1","text":{"type":"plain_text","text":"Drones"}}]}},
			"other":{"other":{"type":"multi_static_select","selected_options":[]}},
			"details":{"details":{"type":"plain_text_input","value":"drone over the rookery"}},
			"when_date":{"when_date":{"type":"datepicker","selected_date":"2024-07-11"}},
			"when_time":{"when_time":{"type":"timepicker","selected_time":"09:30"}}
		}}}}`
	w := h.postInteraction(t, submit)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.reports.subs, 1)
	sub := h.reports.subs[0]
	assert.Equal(t, models.TypeDisturbance, sub.Type)
	assert.Equal(t, models.Term{Name: "Bird Island", ID: "p1"}, sub.Place)
	assert.Equal(t, []models.Term{{Name: "Drones", ID: "w1"}}, sub.WildlifeIssues)
	assert.Equal(t, "jane@example.org", sub.SlackEmail)
	assert.Equal(t, time.Date(2024, 7, 11, 16, 30, 0, 0, time.UTC), sub.When.UTC())

	last := h.api.ephemeral[len(h.api.ephemeral)-1]
	assert.Contains(t, last.text, "Report *DR-7* has been filed")
	assert.Contains(t, last.text, "report likely created")
}

func TestReportSubmitUnknownReporter(t *testing.T) {
	h := newHarness(t)
	h.reports.err = report.ErrUnknownReporter
	submit := `{"type":"view_submission","user":{"id":"U1"},"view":{"callback_id":"report_modal",
		"private_metadata":"{\"type\":\"trail\"}","state":{"values":{}}}}`

	h.postInteraction(t, submit)
	require.Len(t, h.api.messages, 1)
	assert.Contains(t, h.api.messages[0], "U1: Sorry, I couldn't match your Slack account")
}

func TestReportSubmitWithoutLocalCopy(t *testing.T) {
	h := newHarness(t)
	h.reports.unsaved = true
	submit := `{"type":"view_submission","user":{"id":"U1"},"view":{"callback_id":"report_modal",
		"private_metadata":"{\"type\":\"trail\",\"channel\":\"C1\"}","state":{"values":{}}}}`

	h.postInteraction(t, submit)
	require.Len(t, h.reports.subs, 1)
	require.Len(t, h.api.ephemeral, 1)
	text := h.api.ephemeral[0].text
	assert.Contains(t, text, "Your report has been filed on the docent site")
	assert.Contains(t, text, "report likely created")
	assert.NotContains(t, text, "TR-0")
}
