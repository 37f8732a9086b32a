package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/aseli4488/cyoa-stats/internal/hashing"
	"github.com/aseli4488/cyoa-stats/internal/ingest"
	"github.com/aseli4488/cyoa-stats/internal/model"
)

// fakeStore backs both the pipeline write path and the read paths, with
// ON CONFLICT DO NOTHING semantics on (project_id, data_hash).
type fakeStore struct {
	rows []model.LogEntry
}

func (s *fakeStore) InsertIgnoreDuplicate(_ context.Context, e *model.LogEntry) error {
	for _, r := range s.rows {
		if r.ProjectID == e.ProjectID && r.DataHash == e.DataHash {
			return nil
		}
	}
	e.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, *e)
	return nil
}

func (s *fakeStore) ListByProject(_ context.Context, projectID string) ([]model.LogEntry, error) {
	var out []model.LogEntry
	for _, r := range s.rows {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) countFor(projectID string) int {
	n := 0
	for _, r := range s.rows {
		if r.ProjectID == projectID {
			n++
		}
	}
	return n
}

// fakeProjects maps secret digests to projects.
type fakeProjects struct {
	bySecretHash map[string]*model.Project
}

func (p *fakeProjects) GetBySecretHash(_ context.Context, h string) (*model.Project, error) {
	return p.bySecretHash[h], nil
}

func newTestHandler(t *testing.T) (*LogHandler, *fakeStore, *fakeProjects, *hashing.Hasher) {
	t.Helper()
	hasher, err := hashing.New("test-pepper")
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	projects := &fakeProjects{bySecretHash: make(map[string]*model.Project)}
	h := &LogHandler{
		Pipeline:       ingest.NewPipeline(hasher, store),
		Logs:           store,
		Projects:       projects,
		Hasher:         hasher,
		MaxBeaconBytes: 200 * 1024,
		MaxCSPBytes:    50 * 1024,
	}
	return h, store, projects, hasher
}

func doPost(t *testing.T, h *LogHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestSubmit_AcceptsAndDeduplicates(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	body := `{"projectId":"p1","data":{"eventType":"click","timestamp":1000,"currentURL":"https://x"}}`

	rec := doPost(t, h, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first submit: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doPost(t, h, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := store.countFor("p1"); n != 1 {
		t.Fatalf("expected 1 stored row after replay, got %d", n)
	}
}

func TestSubmit_SnakeCaseProjectID(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	body := `{"project_id":"p2","data":{"eventType":"click","timestamp":1000,"currentURL":"https://x"}}`
	rec := doPost(t, h, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if n := store.countFor("p2"); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestSubmit_MissingPayloadFieldsNamed(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	rec := doPost(t, h, `{"projectId":"p1","data":{"eventType":"click"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Message string   `json:"message"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := []string{"timestamp", "currentURL"}
	if len(body.Missing) != len(want) {
		t.Fatalf("expected missing %v, got %v", want, body.Missing)
	}
	for i, f := range want {
		if body.Missing[i] != f {
			t.Fatalf("expected missing %v, got %v", want, body.Missing)
		}
		if !strings.Contains(body.Message, f) {
			t.Fatalf("message %q does not name %q", body.Message, f)
		}
	}
	if len(store.rows) != 0 {
		t.Fatal("rejected beacon was stored")
	}
}

func TestSubmit_PayloadTooLarge(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	h.MaxBeaconBytes = 64
	big := `{"projectId":"p1","data":"{\"eventType\":\"click\",\"timestamp\":1000,\"currentURL\":\"https://` + strings.Repeat("x", 200) + `\"}"}`
	rec := doPost(t, h, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.rows) != 0 {
		t.Fatal("oversized beacon was stored")
	}
}

func TestSubmit_MalformedDataString(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	rec := doPost(t, h, `{"projectId":"p1","data":"{not json"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "JSON") {
		t.Fatalf("expected a JSON-syntax reason, got %s", rec.Body.String())
	}
	if len(store.rows) != 0 {
		t.Fatal("malformed beacon was stored")
	}
}

func TestSubmit_MissingVisitorIdentity(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/log",
		strings.NewReader(`{"projectId":"p1","data":{"eventType":"click","timestamp":1000,"currentURL":"https://x"}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = ""
	rec := httptest.NewRecorder()
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitCSP_QueryParams(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	e := echo.New()
	data := `{"eventType":"click","timestamp":1000,"currentURL":"https://x"}`
	req := httptest.NewRequest(http.MethodGet, "/api/log-csp?projectId=p1&data="+
		strings.NewReplacer("{", "%7B", "}", "%7D", `"`, "%22", ":", "%3A", ",", "%2C", "/", "%2F").Replace(data), nil)
	rec := httptest.NewRecorder()
	if err := h.SubmitCSP(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := store.countFor("p1"); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	if store.rows[0].LogType != model.LogTypeCSP {
		t.Fatalf("expected log_type %q, got %q", model.LogTypeCSP, store.rows[0].LogType)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected no-store cache header, got %q", cc)
	}
}

func TestList_Authorization(t *testing.T) {
	h, _, projects, hasher := newTestHandler(t)

	secret := "owner-secret"
	projects.bySecretHash[hasher.Sum(secret)] = &model.Project{ProjectID: "p1"}

	// Seed rows for two projects; only p1's may come back.
	doPost(t, h, `{"projectId":"p1","data":{"eventType":"click","timestamp":1000,"currentURL":"https://x"}}`)
	doPost(t, h, `{"projectId":"p2","data":{"eventType":"click","timestamp":2000,"currentURL":"https://y"}}`)

	e := echo.New()

	// No header.
	req := httptest.NewRequest(http.MethodGet, "/api/log", nil)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: expected 401, got %d", rec.Code)
	}

	// Wrong secret.
	req = httptest.NewRequest(http.MethodGet, "/api/log", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer wrong")
	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: expected 401, got %d", rec.Code)
	}

	// Matching secret returns only p1 rows.
	req = httptest.NewRequest(http.MethodGet, "/api/log", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+secret)
	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Logs []model.LogEntry `json:"logs"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Logs) != 1 || body.Data.Logs[0].ProjectID != "p1" {
		t.Fatalf("expected exactly p1's rows, got %+v", body.Data.Logs)
	}
}
