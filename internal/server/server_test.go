package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
)

// testServer serves requests in-process.
type testServer struct {
	h http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	srv := New(dashboard.NewManager(dashboard.Services{}), Options{CORSOrigins: []string{"http://localhost:3000"}}, nil)
	return &testServer{h: srv.Handler()}
}

func do(t *testing.T, ts *testServer, method, url, ctype string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, url, body)
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec.Result(), rec.Body.Bytes()
}

func createSample(t *testing.T, ts *testServer) string {
	t.Helper()
	resp, body := do(t, ts, http.MethodPost, "/api/datasets/sample", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var out struct {
		SessionID string `json:"session_id"`
		Overview  struct {
			Rows int `json:"rows"`
		} `json:"overview"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.SessionID == "" || out.Overview.Rows != 10 {
		t.Fatalf("load response %s", body)
	}
	return out.SessionID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
}

func TestQueryFlow(t *testing.T) {
	ts := newTestServer(t)
	id := createSample(t, ts)
	base := "/api/sessions/" + id

	resp, body := do(t, ts, http.MethodPost, base+"/query", "application/json", strings.NewReader(`{"query":"average salary by department"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query status=%d body=%s", resp.StatusCode, body)
	}
	var ans struct {
		Records []map[string]any `json:"records"`
		Chart   struct {
			Type string `json:"type"`
		} `json:"chart"`
		Result struct {
			Kind  string `json:"kind"`
			Chart string `json:"chartType"`
		} `json:"result"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(body, &ans); err != nil {
		t.Fatal(err)
	}
	if len(ans.Records) != 3 || ans.Result.Chart != "bar" || ans.Result.Kind != "groups" || ans.Summary == "" {
		t.Fatalf("answer %s", body)
	}
	if _, ok := ans.Records[0]["Department"]; !ok {
		t.Fatalf("record %v", ans.Records[0])
	}

	resp, body = do(t, ts, http.MethodGet, base+"/history", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "average salary by department") {
		t.Fatalf("history status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = do(t, ts, http.MethodGet, base+"/export?format=csv&view=result", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "Department,value,count") {
		t.Fatalf("export status=%d body=%s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "result.csv") {
		t.Fatalf("content-disposition %q", cd)
	}

	resp, body = do(t, ts, http.MethodGet, base+"/suggestions", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"source":"fallback"`) {
		t.Fatalf("suggestions status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = do(t, ts, http.MethodDelete, base, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	resp, _ = do(t, ts, http.MethodGet, base, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", resp.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/datasets?name=sales.csv", "text/csv", strings.NewReader("Region,Sales\nNorth,10\nSouth,20\n"))
	if resp.StatusCode != http.StatusCreated || !strings.Contains(string(body), `"dataset":"sales.csv"`) {
		t.Fatalf("raw upload status=%d body=%s", resp.StatusCode, body)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "dir/regions.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(fw, "Region,Sales\nNorth,10\nSouth,20\n")
	mw.Close()
	resp, body = do(t, ts, http.MethodPost, "/api/datasets", mw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusCreated || !strings.Contains(string(body), `"dataset":"regions.csv"`) {
		t.Fatalf("multipart upload status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = do(t, ts, http.MethodPost, "/api/datasets", "text/csv", strings.NewReader(""))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), `"error"`) {
		t.Fatalf("empty upload status=%d body=%s", resp.StatusCode, body)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, ts, http.MethodGet, "/api/sessions/missing/suggestions", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session status=%d", resp.StatusCode)
	}

	id := createSample(t, ts)
	base := "/api/sessions/" + id
	cases := []struct {
		name, method, path, body string
		want                     int
	}{
		{"bad json", http.MethodPost, "/query", "{", http.StatusBadRequest},
		{"empty query", http.MethodPost, "/query", `{"query":" "}`, http.StatusBadRequest},
		{"bad format", http.MethodGet, "/export?format=pdf", "", http.StatusBadRequest},
		{"no result yet", http.MethodGet, "/export?view=result", "", http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			resp, b := do(t, ts, tc.method, base+tc.path, "application/json", body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status=%d want %d body=%s", resp.StatusCode, tc.want, b)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/datasets/sample", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin=%q", got)
	}
}
