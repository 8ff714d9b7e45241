package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"interview-engine/pkg/config"
	"interview-engine/pkg/models"
	"interview-engine/pkg/session"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	log := logrus.NewEntry(l)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	engine := session.NewEngine(cfg, nil, nil, log)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	t.Cleanup(engine.Shutdown)

	h := NewHandlers(engine, nil, nil, nil, log)
	r := mux.NewRouter()
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/sessions", map[string]interface{}{
		"questions": []models.Question{
			{ID: "q1", Text: "Tell me about yourself", ExpectedDuration: 60},
			{ID: "q2", Text: "Describe a hard bug", ExpectedDuration: 120},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SessionID == "" {
		t.Fatal("no session id")
	}
	return out.SessionID
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv)

	resp := postJSON(t, fmt.Sprintf("%s/sessions/%s/start", srv.URL, id), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	var st models.SessionState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Phase != models.PhasePresenting || st.CurrentQuestionID != "q1" {
		t.Fatalf("state = %+v", st)
	}

	get, err := http.Get(fmt.Sprintf("%s/sessions/%s", srv.URL, id))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get session: status %d", get.StatusCode)
	}
}

func TestCreateSessionWithoutQuestions(t *testing.T) {
	srv := testServer(t)

	resp := postJSON(t, srv.URL+"/sessions", map[string]interface{}{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/sessions/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIllegalTransitionIs409(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv)

	// Advancing an idle session is not a legal move.
	resp := postJSON(t, fmt.Sprintf("%s/sessions/%s/advance", srv.URL, id), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestUnknownRecordingIs404(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv)

	resp, err := http.Get(fmt.Sprintf("%s/sessions/%s/recordings/nope", srv.URL, id))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRemoveSession(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv)

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sessions/%s", srv.URL, id), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	get, err := http.Get(fmt.Sprintf("%s/sessions/%s", srv.URL, id))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Fatalf("removed session still served: %d", get.StatusCode)
	}
}
