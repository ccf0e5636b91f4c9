package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/scanrelay/adapters/httpapi"
	"github.com/jdelaire/scanrelay/adapters/telegram_notifier"
	"github.com/jdelaire/scanrelay/core"
	"github.com/jdelaire/scanrelay/core/ops"
	"github.com/jdelaire/scanrelay/core/policy"
	"github.com/jdelaire/scanrelay/internal/scoring"
)

const botToken = "123:secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTelegram records sendMessage calls.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []map[string]any
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.sent = append(f.sent, body)
	f.mu.Unlock()
	w.Write([]byte(`{"ok":true}`))
}

func (f *fakeTelegram) messages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.sent...)
}

type evaluatorSpy struct {
	mu      sync.Mutex
	symbols []string
	err     error
}

func (e *evaluatorSpy) Evaluate(ctx context.Context, symbol string) (scoring.Result, error) {
	e.mu.Lock()
	e.symbols = append(e.symbols, symbol)
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return scoring.Result{}, err
	}
	return scoring.Placeholder{}.Evaluate(ctx, symbol)
}

func (e *evaluatorSpy) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *evaluatorSpy) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.symbols...)
}

type fixture struct {
	relay    *httptest.Server
	telegram *fakeTelegram
	eval     *evaluatorSpy
}

func newFixture(t *testing.T, admin *int64, opts httpapi.Options) *fixture {
	t.Helper()

	tg := &fakeTelegram{}
	tgSrv := httptest.NewServer(tg)
	t.Cleanup(tgSrv.Close)

	eval := &evaluatorSpy{}
	logger := testLogger()
	pol := policy.New(admin)
	runner := scoring.NewRunner(eval, 2, 0, logger)

	reg, err := ops.NewRelayRegistry(pol, runner)
	require.NoError(t, err)

	notifier := telegram_notifier.New(opts.Token, logger).WithBaseURL(tgSrv.URL)
	dispatcher := core.NewDispatcher(reg, pol, runner, notifier, logger)

	srv := httptest.NewServer(httpapi.NewHandler(dispatcher, opts, logger))
	t.Cleanup(srv.Close)

	return &fixture{relay: srv, telegram: tg, eval: eval}
}

func (f *fixture) post(t *testing.T, path, body string) (int, core.Response) {
	t.Helper()
	resp, err := http.Post(f.relay.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out core.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func update(chatID int64, text string) string {
	b, _ := json.Marshal(map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 1,
			"from":       map[string]any{"id": chatID},
			"chat":       map[string]any{"id": chatID},
			"text":       text,
		},
	})
	return string(b)
}

func adminID(id int64) *int64 { return &id }

func TestWebhookInvalidToken(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})

	status, resp := f.post(t, "/webhook/wrong", update(1, "/scan aapl"))

	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, resp.OK)
	assert.Empty(t, f.eval.calls())
	assert.Empty(t, f.telegram.messages())
}

func TestWebhookEmptyConfiguredToken(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: ""})

	resp, err := http.Post(f.relay.URL+"/webhook/", "application/json", strings.NewReader(update(1, "/start")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)

	status, _ := f.post(t, "/webhook/anything", update(1, "/start"))
	assert.Equal(t, http.StatusForbidden, status)
}

func TestWebhookStart(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	status, resp := f.post(t, "/webhook/"+botToken, update(42, "/START"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, ops.WelcomeText, sent[0]["text"])
	assert.Equal(t, float64(42), sent[0]["chat_id"])
	assert.Equal(t, "Markdown", sent[0]["parse_mode"])
}

func TestWebhookMissingFieldsNoSend(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})

	for _, body := range []string{
		`{}`,
		`{"message": {"chat": {"id": 5}}}`,
		`{"message": {"text": "/start"}}`,
		`{"message": {"chat": {"id": 5}, "text": "   "}}`,
		`not json at all`,
	} {
		status, resp := f.post(t, "/webhook/"+botToken, body)
		assert.Equal(t, http.StatusOK, status, body)
		assert.True(t, resp.OK, body)
	}
	assert.Empty(t, f.telegram.messages())
}

func TestWebhookScanWithoutAdmin(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})

	status, resp := f.post(t, "/webhook/"+botToken, update(42, "/scan aapl"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"AAPL"}, f.eval.calls())

	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	text := sent[0]["text"].(string)
	assert.Contains(t, text, "AAPL")
	assert.Contains(t, text, "0.86")
}

func TestWebhookScanDenied(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	status, _ := f.post(t, "/webhook/"+botToken, update(42, "/scan aapl"))

	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, f.eval.calls())
	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, ops.ScanDeniedText, sent[0]["text"])
}

func TestWebhookScanFailureAcknowledged(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})
	f.eval.fail(errors.New("backend unavailable"))

	status, resp := f.post(t, "/webhook/"+botToken, update(42, "/scan aapl"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, ops.ScanFailureText, sent[0]["text"])
}

func TestWebhookOtherTextIgnored(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	for _, text := range []string{"hello there", "/help", "/status", "/startnow"} {
		status, resp := f.post(t, "/webhook/"+botToken, update(42, text))
		assert.Equal(t, http.StatusOK, status, text)
		assert.True(t, resp.OK, text)
	}
	assert.Empty(t, f.eval.calls())
	assert.Empty(t, f.telegram.messages())
}

func TestScanTriggerDefaultsToAdmin(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	status, resp := f.post(t, "/scan/"+botToken, `{"symbol": "tsla"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "TSLA", resp.Result.Symbol)
	assert.Contains(t, resp.Result.Strategies, "demo")
	assert.Len(t, resp.Result.Survivability, 3)

	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, float64(100), sent[0]["chat_id"])
	assert.Contains(t, sent[0]["text"], "TSLA")
}

func TestScanTriggerReplyTo(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	status, _ := f.post(t, "/scan/"+botToken, `{"symbol": "btc", "reply_to": 777}`)

	assert.Equal(t, http.StatusOK, status)
	sent := f.telegram.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, float64(777), sent[0]["chat_id"])
}

func TestScanTriggerMissingSymbol(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	for _, body := range []string{`{}`, `{"symbol": ""}`, `{"reply_to": 5}`, `garbage`} {
		status, resp := f.post(t, "/scan/"+botToken, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.False(t, resp.OK, body)
	}
	assert.Empty(t, f.eval.calls())
	assert.Empty(t, f.telegram.messages())
}

func TestScanTriggerLongSymbol(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})
	symbol := strings.Repeat("X", 40)

	status, resp := f.post(t, "/scan/"+botToken, `{"symbol": "`+symbol+`"}`)

	assert.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)
	require.NotNil(t, resp.Result)
	assert.Equal(t, symbol, resp.Result.Symbol)
	assert.Len(t, f.telegram.messages(), 1)
}

func TestScanTriggerInvalidToken(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})

	status, _ := f.post(t, "/scan/nope", `{"symbol": "tsla"}`)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Empty(t, f.eval.calls())
	assert.Empty(t, f.telegram.messages())
}

func TestScanTriggerFailure(t *testing.T) {
	f := newFixture(t, adminID(100), httpapi.Options{Token: botToken})
	f.eval.fail(errors.New("boom"))

	status, resp := f.post(t, "/scan/"+botToken, `{"symbol": "tsla"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.OK)
	assert.Nil(t, resp.Result)
}

func TestRootWebhook(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken, RootWebhook: true})

	status, resp := f.post(t, "/", update(42, "/start"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	assert.Len(t, f.telegram.messages(), 1)
}

func TestRootWebhookDisabled(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})

	resp, err := http.Post(f.relay.URL+"/", "application/json", strings.NewReader(update(42, "/start")))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, f.telegram.messages())
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil, httpapi.Options{Token: botToken})

	resp, err := http.Get(f.relay.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
