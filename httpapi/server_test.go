package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/internal/command"
	"pkt.systems/codecanvas/internal/metrics"
	"pkt.systems/codecanvas/schema"
)

type failingSubmissions struct{}

func (failingSubmissions) Submit(context.Context, schema.Submission) error {
	return errors.New("broker down")
}

type testEnv struct {
	server  *Server
	handler http.Handler
	service core.Service
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T, cfg Config, submissions core.SubmissionSink) *testEnv {
	t.Helper()
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "codecanvas_session"
	}
	reg := prometheus.NewRegistry()
	collectors, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	hub := NewHub(100)
	service, err := core.NewService(schema.ServiceConfig{}, core.ServiceDeps{
		EventSink:   hub,
		Submissions: submissions,
		Metrics:     collectors,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler := command.NewHandler(service, command.HandlerConfig{})
	server := NewServer(cfg, service, handler, hub, ServerDeps{Metrics: collectors, Gatherer: reg})
	return &testEnv{server: server, handler: server.Handler(), service: service}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range e.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (e *testEnv) workspace(t *testing.T) schema.WorkspaceSnapshot {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/workspace", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[schema.WorkspaceSnapshot](t, rec)
}

func fileNamed(t *testing.T, ws schema.WorkspaceSnapshot, name schema.FileName) schema.FileSnapshot {
	t.Helper()
	for _, file := range ws.Files {
		if file.Name == name {
			return file
		}
	}
	t.Fatalf("file %q not found in %+v", name, ws.Files)
	return schema.FileSnapshot{}
}

func TestWorkspaceCreatesSessionCookie(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	rec := env.do(t, http.MethodGet, "/api/workspace", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.cookies) != 1 || env.cookies[0].Name != "codecanvas_session" || !env.cookies[0].HttpOnly {
		t.Fatalf("expected session cookie, got %+v", env.cookies)
	}
	ws := decodeBody[schema.WorkspaceSnapshot](t, rec)
	var names []schema.FileName
	for _, file := range ws.Files {
		names = append(names, file.Name)
	}
	if diff := cmp.Diff([]schema.FileName{"index.js", "styles.css", "README.md"}, names); diff != "" {
		t.Fatalf("unexpected seed files (-want +got):\n%s", diff)
	}
	if active, ok := ws.Active(); !ok || active.Name != "index.js" {
		t.Fatalf("expected index.js active, got %+v", ws.ActiveFile)
	}

	cookie := env.cookies[0].Value
	env.do(t, http.MethodPost, "/api/files", `{"name":"app.ts"}`)
	if env.cookies[0].Value != cookie {
		t.Fatalf("expected cookie to be reused")
	}
	if got := len(env.workspace(t).Files); got != 4 {
		t.Fatalf("expected same session to keep 4 files, got %d", got)
	}
}

func TestFileLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	rec := env.do(t, http.MethodPost, "/api/files", `{"name":"app.ts"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	added := decodeBody[struct {
		File schema.FileSnapshot `json:"file"`
	}](t, rec).File
	if added.Language != schema.LanguageTypeScript || !added.Active || added.Content != "// New file: app.ts\n" {
		t.Fatalf("unexpected added file: %+v", added)
	}

	rec = env.do(t, http.MethodPost, "/api/files/content", `{"id":"`+string(added.ID)+`","content":"let x = 1;"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/files/rename", `{"id":"`+string(added.ID)+`","name":"app.js"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	renamed := decodeBody[struct {
		File    schema.FileSnapshot `json:"file"`
		OldName schema.FileName     `json:"old_name"`
	}](t, rec)
	if renamed.OldName != "app.ts" || renamed.File.Language != schema.LanguageJavaScript || renamed.File.Content != "let x = 1;" {
		t.Fatalf("unexpected rename result: %+v", renamed)
	}

	rec = env.do(t, http.MethodPost, "/api/files/delete", `{"id":"`+string(added.ID)+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	deleted := decodeBody[struct {
		ActiveFile schema.FileID `json:"active_file"`
	}](t, rec)
	ws := env.workspace(t)
	if deleted.ActiveFile != ws.Files[0].ID || ws.ActiveFile != ws.Files[0].ID {
		t.Fatalf("expected first survivor to become active, got %q", deleted.ActiveFile)
	}
}

func TestFileErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	ws := env.workspace(t)
	css := fileNamed(t, ws, "styles.css")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"empty name", "/api/files", `{"name":"   "}`, http.StatusBadRequest},
		{"duplicate name", "/api/files", `{"name":"index.js"}`, http.StatusConflict},
		{"rename onto existing", "/api/files/rename", `{"id":"` + string(css.ID) + `","name":"README.md"}`, http.StatusConflict},
		{"rename unknown", "/api/files/rename", `{"id":"missing","name":"x.js"}`, http.StatusNotFound},
		{"delete unknown", "/api/files/delete", `{"id":"missing"}`, http.StatusNotFound},
		{"select unknown", "/api/files/select", `{"id":"missing"}`, http.StatusNotFound},
		{"update unknown", "/api/files/content", `{"id":"missing","content":"x"}`, http.StatusNotFound},
		{"unknown field", "/api/files", `{"name":"a.js","extra":1}`, http.StatusBadRequest},
		{"bad json", "/api/files", `not json`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody[map[string]any](t, rec)
			if _, ok := body["error"]; !ok {
				t.Fatalf("expected error body, got %v", body)
			}
		})
	}
	if diff := cmp.Diff(ws, env.workspace(t)); diff != "" {
		t.Fatalf("expected workspace unchanged (-want +got):\n%s", diff)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	if rec := env.do(t, http.MethodGet, "/api/files", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/workspace", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCommandEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	rec := env.do(t, http.MethodPost, "/api/terminal/command", `{"input":"RUN"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	action := decodeBody[schema.TerminalAction](t, rec)
	if action.Kind != schema.CommandRun || !action.Reset {
		t.Fatalf("unexpected action: %+v", action)
	}
	if diff := cmp.Diff([]string{"> run", "Hello, World!"}, action.Lines); diff != "" {
		t.Fatalf("unexpected run lines (-want +got):\n%s", diff)
	}

	env.do(t, http.MethodPost, "/api/terminal/command", `{"input":"ls"}`)
	terminal := decodeBody[schema.TerminalSnapshot](t, env.do(t, http.MethodGet, "/api/terminal", ""))
	want := []string{"> run", "Hello, World!", "> ls", "Command not found: ls"}
	if diff := cmp.Diff(want, terminal.Lines); diff != "" {
		t.Fatalf("unexpected terminal (-want +got):\n%s", diff)
	}

	limited := decodeBody[schema.TerminalSnapshot](t, env.do(t, http.MethodGet, "/api/terminal?limit=1", ""))
	if diff := cmp.Diff([]string{"Command not found: ls"}, limited.Lines); diff != "" {
		t.Fatalf("unexpected limited terminal (-want +got):\n%s", diff)
	}

	env.do(t, http.MethodPost, "/api/terminal/command", `{"input":"clear"}`)
	terminal = decodeBody[schema.TerminalSnapshot](t, env.do(t, http.MethodGet, "/api/terminal", ""))
	if len(terminal.Lines) != 0 {
		t.Fatalf("expected cleared terminal, got %v", terminal.Lines)
	}

	history := decodeBody[struct {
		Entries []string `json:"entries"`
	}](t, env.do(t, http.MethodGet, "/api/history", ""))
	if diff := cmp.Diff([]string{"RUN", "ls", "clear"}, history.Entries); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestRunAndSelect(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	env.do(t, http.MethodPost, "/api/terminal/command", `{"input":"nope"}`)

	rec := env.do(t, http.MethodPost, "/api/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	run := decodeBody[struct {
		Ran    bool                   `json:"ran"`
		Result schema.ExecutionResult `json:"result"`
	}](t, rec)
	if !run.Ran || !cmp.Equal([]string{"Hello, World!"}, run.Result.OutputLines) {
		t.Fatalf("unexpected run: %+v", run)
	}
	terminal := decodeBody[schema.TerminalSnapshot](t, env.do(t, http.MethodGet, "/api/terminal", ""))
	if diff := cmp.Diff([]string{"Hello, World!"}, terminal.Lines); diff != "" {
		t.Fatalf("expected run output to replace terminal (-want +got):\n%s", diff)
	}

	css := fileNamed(t, env.workspace(t), "styles.css")
	rec = env.do(t, http.MethodPost, "/api/files/select", `{"id":"`+string(css.ID)+`","run":true}`)
	sel := decodeBody[struct {
		ActiveFile schema.FileID `json:"active_file"`
		Ran        bool          `json:"ran"`
	}](t, rec)
	if sel.ActiveFile != css.ID || sel.Ran {
		t.Fatalf("expected css selected without run, got %+v", sel)
	}
	run = decodeBody[struct {
		Ran    bool                   `json:"ran"`
		Result schema.ExecutionResult `json:"result"`
	}](t, env.do(t, http.MethodPost, "/api/run", ""))
	if run.Ran {
		t.Fatalf("expected css not to run")
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	ws := env.workspace(t)
	readme := fileNamed(t, ws, "README.md")

	rec := env.do(t, http.MethodGet, "/api/files/preview?id="+string(readme.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	preview := decodeBody[map[string]string](t, rec)
	if !strings.Contains(preview["html"], "<h1") || preview["language"] != string(schema.LanguageMarkdown) {
		t.Fatalf("unexpected preview: %v", preview)
	}

	if rec := env.do(t, http.MethodGet, "/api/files/preview?id=missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	rec := env.do(t, http.MethodPost, "/api/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[struct {
		Submission schema.Submission `json:"submission"`
	}](t, rec)
	if len(body.Submission.Files) != 3 || body.Submission.Files[0].Name != "index.js" {
		t.Fatalf("unexpected submission: %+v", body.Submission)
	}
	terminal := decodeBody[schema.TerminalSnapshot](t, env.do(t, http.MethodGet, "/api/terminal", ""))
	if len(terminal.Lines) < 2 || terminal.Lines[0] != schema.SubmissionHeader || terminal.Lines[len(terminal.Lines)-1] != schema.SubmissionFooter {
		t.Fatalf("expected submission dump in terminal, got %v", terminal.Lines)
	}
}

func TestSubmitSinkFailure(t *testing.T) {
	env := newTestEnv(t, Config{}, failingSubmissions{})
	rec := env.do(t, http.MethodPost, "/api/submit", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "broker down") {
		t.Fatalf("expected sink error, got %v", body)
	}
	if _, ok := body["submission"]; !ok {
		t.Fatalf("expected submission document in failure body")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	env.do(t, http.MethodPost, "/api/files", `{"name":""}`)
	rec = env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	text := rec.Body.String()
	for _, want := range []string{
		`codecanvas_file_operations_total{op="add",result="error"} 1`,
		`codecanvas_http_requests_total{method="GET",route="/healthz",status="200"} 1`,
		`codecanvas_sessions_open 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics to contain %q", want)
		}
	}
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, Config{BasePath: "play/"}, nil)
	if rec := env.do(t, http.MethodGet, "/play/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under base path, got %d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/play", "")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/play/" {
		t.Fatalf("expected redirect to /play/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	env.do(t, http.MethodGet, "/play/api/workspace", "")
	if len(env.cookies) == 0 || env.cookies[0].Path != "/play/" {
		t.Fatalf("expected cookie scoped to base path, got %+v", env.cookies)
	}
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside base path, got %d", rec.Code)
	}
}

func TestSessionExpiryClosesPlaygroundSession(t *testing.T) {
	env := newTestEnv(t, Config{SessionTTLHours: 1}, nil)
	now := time.Now()
	env.server.sessions.now = func() time.Time { return now }
	env.workspace(t)
	sessionID, _ := env.server.lookupSession(requestWithCookies(env.cookies))
	if sessionID == "" {
		t.Fatalf("expected session")
	}

	now = now.Add(2 * time.Hour)
	env.workspace(t)
	_, err := env.service.GetWorkspace(context.Background(), schema.GetWorkspaceRequest{SessionID: sessionID})
	if !errors.Is(err, schema.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be closed, got %v", err)
	}
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req
}

func newLiveServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	env := newTestEnv(t, Config{}, nil)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := ts.Client()
	client.Jar = jar
	return ts, client
}

func readSSEvent(t *testing.T, reader *bufio.Reader) StreamEvent {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var event StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	ts, client := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	reader := bufio.NewReader(resp.Body)
	snapshot := readSSEvent(t, reader)
	if snapshot.Type != StreamSnapshot || snapshot.Snapshot == nil || len(snapshot.Snapshot.Workspace.Files) != 3 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	addResp, err := client.Post(ts.URL+"/api/files", "application/json", strings.NewReader(`{"name":"notes.md"}`))
	if err != nil {
		t.Fatalf("add file: %v", err)
	}
	addResp.Body.Close()

	workspace := readSSEvent(t, reader)
	if workspace.Type != StreamWorkspace || workspace.WorkspaceEvent != string(schema.WorkspaceEventCreated) || workspace.File == nil || workspace.File.Name != "notes.md" {
		t.Fatalf("unexpected workspace event: %+v", workspace)
	}
	note := readSSEvent(t, reader)
	if note.Type != StreamNotification || note.Notification == nil || note.Notification.Message != `File "notes.md" created.` {
		t.Fatalf("unexpected notification event: %+v", note)
	}
	if note.Seq <= workspace.Seq {
		t.Fatalf("expected increasing seq, got %d then %d", workspace.Seq, note.Seq)
	}
}

func TestWebSocketCommands(t *testing.T) {
	ts, client := newLiveServer(t)
	resp, err := client.Get(ts.URL + "/api/workspace")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	resp.Body.Close()

	header := http.Header{}
	for _, cookie := range client.Jar.Cookies(resp.Request.URL) {
		header.Add("Cookie", cookie.String())
	}
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event StreamEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if event.Type != StreamSnapshot || event.Snapshot == nil {
		t.Fatalf("expected snapshot, got %+v", event)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("run")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read terminal: %v", err)
	}
	if event.Type != StreamTerminal || !event.Reset {
		t.Fatalf("expected terminal reset, got %+v", event)
	}
	if diff := cmp.Diff([]string{"> run", "Hello, World!"}, event.Lines); diff != "" {
		t.Fatalf("unexpected run event (-want +got):\n%s", diff)
	}
}
