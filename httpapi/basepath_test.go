package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"  ", ""},
		{"play", "/play"},
		{"/play", "/play"},
		{"/play/", "/play"},
		{"/a/b//", "/a/b"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMountBasePath(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})
	handler := mountBasePath("/play", inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/play/api/workspace", nil))
	if rec.Body.String() != "/api/workspace" {
		t.Fatalf("expected stripped path, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/play", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/play/" {
		t.Fatalf("expected redirect to /play/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside prefix, got %d", rec.Code)
	}

	if mountBasePath("", inner) == nil {
		t.Fatalf("expected handler for empty prefix")
	}
	if cookiePathFor("") != "/" || cookiePathFor("/play") != "/play/" {
		t.Fatalf("unexpected cookie paths %q %q", cookiePathFor(""), cookiePathFor("/play"))
	}
}
