package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/homealone/internal/dispatch"
	"github.com/nerrad567/homealone/internal/history"
	"github.com/nerrad567/homealone/internal/infrastructure/config"
	"github.com/nerrad567/homealone/internal/infrastructure/logging"
	"github.com/nerrad567/homealone/internal/relay"
	"github.com/nerrad567/homealone/internal/schedule"
)

type fakeDispatcher struct {
	result dispatch.Result
	err    error
	cmds   []dispatch.Command
}

func (f *fakeDispatcher) Dispatch(_ context.Context, cmd dispatch.Command) (dispatch.Result, error) {
	f.cmds = append(f.cmds, cmd)
	res := f.result
	res.Command = cmd
	return res, f.err
}

type fakeJobs struct {
	jobs []schedule.Job
	next time.Time
}

func (f *fakeJobs) Jobs() []schedule.Job { return f.jobs }

func (f *fakeJobs) Job(id string) (schedule.Job, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return schedule.Job{}, schedule.ErrJobNotFound
}

func (f *fakeJobs) Next(string) (time.Time, error) { return f.next, nil }

type fakeHistory struct {
	filter history.Filter
	result *history.ListResult
	err    error
}

func (f *fakeHistory) List(_ context.Context, filter history.Filter) (*history.ListResult, error) {
	f.filter = filter
	return f.result, f.err
}

type fakeStats struct{}

func (fakeStats) Stats() relay.SenderStats {
	return relay.SenderStats{Sends: 3, Successes: 2, Failures: 1, Attempts: 5}
}

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	deps.Logger = logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	deps.Version = "test"
	if deps.Dispatcher == nil {
		deps.Dispatcher = &fakeDispatcher{}
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)

	if _, err := New(Deps{Dispatcher: &fakeDispatcher{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without dispatcher should fail")
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t, Deps{})
	w := do(t, srv, http.MethodGet, "/api/v1/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, Deps{})

	w := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want client value", got)
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t, Deps{})
	w := do(t, srv, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRelayAction(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		result     dispatch.Result
		err        error
		wantStatus int
		wantCmd    *dispatch.Command
	}{
		{
			name:       "acknowledged",
			path:       "/api/v1/relays/3.4/actions",
			body:       `{"action":"on"}`,
			result:     dispatch.Result{Success: true, Attempts: 1},
			wantStatus: http.StatusOK,
			wantCmd:    &dispatch.Command{Relay: relay.Address{Module: 3, Channel: 4}, Action: relay.ActionOn, Source: dispatch.SourceAPI},
		},
		{
			name:       "all attempts failed",
			path:       "/api/v1/relays/2.4/actions",
			body:       `{"action":"Off","description":"manual"}`,
			result:     dispatch.Result{Success: false, Attempts: 2},
			wantStatus: http.StatusBadGateway,
			wantCmd:    &dispatch.Command{Relay: relay.Address{Module: 2, Channel: 4}, Action: relay.ActionOff, Source: dispatch.SourceAPI, Description: "manual"},
		},
		{name: "bad address", path: "/api/v1/relays/3-4/actions", body: `{"action":"on"}`, wantStatus: http.StatusBadRequest},
		{name: "channel zero", path: "/api/v1/relays/3.0/actions", body: `{"action":"on"}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", path: "/api/v1/relays/3.4/actions", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown action", path: "/api/v1/relays/3.4/actions", body: `{"action":"explode"}`, wantStatus: http.StatusBadRequest},
		{name: "missing action", path: "/api/v1/relays/3.4/actions", body: `{}`, wantStatus: http.StatusBadRequest},
		{
			name:       "cancelled",
			path:       "/api/v1/relays/3.4/actions",
			body:       `{"action":"on"}`,
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unexpected error",
			path:       "/api/v1/relays/3.4/actions",
			body:       `{"action":"on"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disp := &fakeDispatcher{result: tt.result, err: tt.err}
			srv := testServer(t, Deps{Dispatcher: disp})

			w := do(t, srv, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCmd == nil {
				return
			}
			if len(disp.cmds) != 1 || disp.cmds[0] != *tt.wantCmd {
				t.Fatalf("dispatched %+v, want %+v", disp.cmds, *tt.wantCmd)
			}

			var resp ActionResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if resp.Success != tt.result.Success || resp.Attempts != tt.result.Attempts {
				t.Errorf("response = %+v", resp)
			}
			if resp.Relay != tt.wantCmd.Relay.String() || resp.Action != tt.wantCmd.Action.String() {
				t.Errorf("response relay/action = %s %s", resp.Relay, resp.Action)
			}
		})
	}
}

func TestListActions(t *testing.T) {
	srv := testServer(t, Deps{})
	w := do(t, srv, http.MethodGet, "/api/v1/actions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Actions []struct {
			Name string `json:"name"`
			Code uint8  `json:"code"`
		} `json:"actions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(body.Actions) != 9 {
		t.Fatalf("actions = %d, want 9", len(body.Actions))
	}
	if body.Actions[8].Name != "OnPassiveInfraRed" || body.Actions[8].Code != 8 {
		t.Errorf("last action = %+v", body.Actions[8])
	}
}

func TestJobs(t *testing.T) {
	next := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{
		next: next,
		jobs: []schedule.Job{{
			ID:          "job-1",
			Cron:        "0 0 20 * * ?",
			Relay:       relay.Address{Module: 2, Channel: 4},
			Action:      relay.ActionOff,
			Jitter:      10 * time.Second,
			Description: "Bedtijd kinderen",
		}},
	}
	srv := testServer(t, Deps{Jobs: jobs})

	w := do(t, srv, http.MethodGet, "/api/v1/jobs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var list struct {
		Jobs  []JobResponse `json:"jobs"`
		Count int           `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if list.Count != 1 || len(list.Jobs) != 1 {
		t.Fatalf("jobs = %+v", list)
	}
	got := list.Jobs[0]
	if got.Relay != "2.4" || got.Action != "Off" || got.JitterSeconds != 10 {
		t.Errorf("job = %+v", got)
	}
	if got.NextRun == nil || !got.NextRun.Equal(next) {
		t.Errorf("next_run = %v, want %v", got.NextRun, next)
	}

	if w := do(t, srv, http.MethodGet, "/api/v1/jobs/job-1", ""); w.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/jobs/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", w.Code)
	}
}

func TestJobs_NotConfigured(t *testing.T) {
	srv := testServer(t, Deps{})
	if w := do(t, srv, http.MethodGet, "/api/v1/jobs", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{result: &history.ListResult{
		Records: []history.Record{{ID: "r1", Relay: "3.4", Action: "On", Source: "api", Success: true, Attempts: 1}},
		Total:   1,
		Limit:   10,
	}}
	srv := testServer(t, Deps{History: hist})

	w := do(t, srv, http.MethodGet, "/api/v1/history?relay=003.004&source=api&limit=10&offset=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := history.Filter{Relay: "3.4", Source: "api", Limit: 10, Offset: 5}
	if hist.filter != want {
		t.Errorf("filter = %+v, want %+v", hist.filter, want)
	}

	var result history.ListResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if result.Total != 1 || len(result.Records) != 1 || result.Records[0].ID != "r1" {
		t.Errorf("result = %+v", result)
	}
}

func TestHistory_Errors(t *testing.T) {
	srv := testServer(t, Deps{History: &fakeHistory{}})
	if w := do(t, srv, http.MethodGet, "/api/v1/history?relay=bogus", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad relay status = %d, want 400", w.Code)
	}

	srv = testServer(t, Deps{History: &fakeHistory{err: errors.New("db locked")}})
	if w := do(t, srv, http.MethodGet, "/api/v1/history", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("repository error status = %d, want 500", w.Code)
	}

	srv = testServer(t, Deps{})
	if w := do(t, srv, http.MethodGet, "/api/v1/history", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("not configured status = %d, want 503", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := testServer(t, Deps{Stats: fakeStats{}})
	w := do(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var m SystemMetrics
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if m.Sender == nil || m.Sender.Sends != 3 || m.Sender.Attempts != 5 {
		t.Errorf("sender metrics = %+v", m.Sender)
	}
	if m.MQTT != nil {
		t.Errorf("mqtt metrics = %+v, want omitted", m.MQTT)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("runtime metrics missing")
	}
}

func TestStartAndClose(t *testing.T) {
	srv := testServer(t, Deps{Config: config.APIConfig{
		Host:     "127.0.0.1",
		Port:     0,
		Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
	}})

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
