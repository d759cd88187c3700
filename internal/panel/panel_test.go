package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_EmbeddedAssets(t *testing.T) {
	h := Handler("")

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "<!DOCTYPE html>"},
		{"/app.js", "climate.state"},
		{"/style.css", ".card"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s: status %d, want 200", tt.path, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("GET %s: body does not contain %q", tt.path, tt.contains)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
				t.Errorf("Cache-Control = %q", got)
			}
		})
	}
}

func TestHandler_RouteFallback(t *testing.T) {
	h := Handler("")

	for _, path := range []string{"/living-ac", "/climates/bedroom-ac"} {
		w := get(t, h, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: did not serve index.html", path)
		}
	}
}

func TestHandler_MissingAsset(t *testing.T) {
	w := get(t, Handler(""), "/missing.js")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js: status %d, want 404", w.Code)
	}
}

func TestHandler_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte(`<!DOCTYPE html><html><body>local dashboard</body></html>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("// local"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if w := get(t, h, "/"); !strings.Contains(w.Body.String(), "local dashboard") {
		t.Errorf("GET /: body = %q, want directory index", w.Body.String())
	}
	if w := get(t, h, "/app.js"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "// local") {
		t.Errorf("GET /app.js: status %d body %q", w.Code, w.Body.String())
	}
	if w := get(t, h, "/style.css"); w.Code != http.StatusNotFound {
		t.Errorf("GET /style.css: status %d, want 404 (not in directory)", w.Code)
	}
	if w := get(t, h, "/deep/route"); !strings.Contains(w.Body.String(), "local dashboard") {
		t.Error("route fallback did not use the directory index")
	}
}

func TestHandler_MissingDirectoryUsesEmbedded(t *testing.T) {
	w := get(t, Handler("/nonexistent/panel"), "/app.js")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "climate.state") {
		t.Errorf("GET /app.js: status %d, want embedded asset", w.Code)
	}
}
