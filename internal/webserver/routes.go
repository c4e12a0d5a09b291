package webserver

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spboyer/codearena/internal/webapi"
	"github.com/spboyer/codearena/web"
)

// registerRoutes mounts the API and the static page. Only static assets are
// compressed; the battle stream is flushed event by event.
func registerRoutes(mux *http.ServeMux, cfg Config) error {
	webapi.RegisterRoutes(mux, cfg.Runner, cfg.Sessions)

	handler, err := pageHandler()
	if err != nil {
		return fmt.Errorf("failed to initialize page handler: %w", err)
	}
	mux.Handle("/", gzhttp.GzipHandler(handler))
	return nil
}

// pageHandler serves the embedded page assets. Unknown paths get index.html.
func pageHandler() (http.Handler, error) {
	distFS, err := fs.Sub(web.Assets, "dist")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub filesystem for web/dist: %w", err)
	}

	fileServer := http.FileServer(http.FS(distFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" {
			cleanPath := strings.TrimPrefix(path, "/")
			if f, err := distFS.Open(cleanPath); err == nil {
				f.Close() //nolint:errcheck
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}), nil
}
