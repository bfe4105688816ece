package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

const gridCase = `
[network]
id = "grid"

[[substations]]
id = "s1"
country = "FR"

[[substations.voltage_levels]]
id = "vl1"
nominal_v = 380.0
buses = [{ id = "b1" }, { id = "b2" }]
switches = [{ id = "cpl", bus1 = "b1", bus2 = "b2" }]
loads = [{ id = "l1", bus = "b1", p0 = 10.0, q0 = 1.0 }]
generators = [{ id = "g1", bus = "b2", min_p = 0.0, max_p = 100.0, target_p = 50.0, target_v = 390.0, voltage_regulator_on = true }]

[[variants]]
id = "split"
open_switches = ["cpl"]
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.toml")
	if err := os.WriteFile(path, []byte(gridCase), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	s := New(pipeline.NewRunner(nil, nil, logger), []string{path}, pipeline.DefaultMergeID, logger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/summary?variant=split")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var s gridio.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.ID != "grid" || len(s.Variants) != 1 || s.Variants[0].ID != "split" {
		t.Errorf("summary = %+v", s)
	}
	if got := len(s.Variants[0].Buses); got != 2 {
		t.Errorf("split buses = %d, want 2", got)
	}
}

func TestVariants(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/variants")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var got []variantInfo
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len(variants) = %d, want 2", len(got))
	}
	if got[0].Buses != 1 || got[1].Buses != 2 {
		t.Errorf("variants = %+v", got)
	}
}

func TestDiagram(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/variants/split/diagram/dot")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(string(body), `graph "grid"`) {
		t.Errorf("body = %s", body)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"unknown variant", "/variants/nope/diagram/dot", http.StatusNotFound, "NOT_FOUND"},
		{"unknown summary variant", "/summary?variant=nope", http.StatusNotFound, "NOT_FOUND"},
		{"bad format", "/variants/split/diagram/png", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if e.Code != tt.code || e.Error == "" {
				t.Errorf("error body = %+v, want code %s", e, tt.code)
			}
		})
	}
}
