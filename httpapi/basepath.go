package httpapi

import (
	"net/http"
	"strings"
)

// normalizeBasePath turns a configured prefix into "" or "/segment[/...]"
// without a trailing slash.
func normalizeBasePath(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "/" {
		return ""
	}
	return path
}

// mountBasePath serves handler under prefix. The bare prefix redirects to
// prefix + "/" so relative API paths resolve.
func mountBasePath(prefix string, handler http.Handler) http.Handler {
	if prefix == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

// cookiePathFor scopes the session cookie to the mounted prefix.
func cookiePathFor(prefix string) string {
	if prefix == "" {
		return "/"
	}
	return prefix + "/"
}
