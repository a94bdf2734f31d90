package demoserver

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DemoServer serves a small site whose pages can be switched between a
// version with audit findings and a fixed version.
type DemoServer struct {
	cfg      Config
	pages    map[string]PageDefinition
	versions map[string]int // path -> current version
	mu       sync.RWMutex
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	if cfg.InitialVersion <= 0 {
		cfg.InitialVersion = 1
	}
	pageMap := make(map[string]PageDefinition)
	versions := make(map[string]int)
	for _, p := range GetAllPages() {
		pageMap[p.Path] = p
		versions[p.Path] = cfg.InitialVersion
	}
	return &DemoServer{
		cfg:      cfg,
		pages:    pageMap,
		versions: versions,
	}
}

// Handler returns the site plus the /demo control endpoints.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for path := range s.pages {
		mux.HandleFunc(path, s.pageHandler(path))
	}

	mux.HandleFunc("/sitemap.xml", s.sitemapIndexHandler)
	mux.HandleFunc("/sitemap-pages.xml", s.sitemapHandler)
	mux.HandleFunc("/robots.txt", s.robotsHandler)
	mux.Handle("/moved", http.RedirectHandler("/about", http.StatusMovedPermanently))
	mux.HandleFunc("/static/", s.staticHandler)

	mux.HandleFunc("/demo/control", s.controlPanelHandler)
	mux.HandleFunc("/demo/set-version", s.setVersionHandler)
	mux.HandleFunc("/demo/get-versions", s.getVersionsHandler)
	mux.HandleFunc("/demo/bump-all", s.bumpAllVersionsHandler)
	mux.HandleFunc("/demo/reset", s.resetVersionsHandler)
	return mux
}

// Start serves Handler on the configured port.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo server starting on http://localhost%s\n", addr)
	fmt.Printf("Control panel at http://localhost%s/demo/control\n", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// SetAllVersions switches every page to version v, capped at the highest
// version each page has.
func (s *DemoServer) SetAllVersions(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.versions {
		s.versions[path] = min(max(v, 1), s.maxVersion(path))
	}
}

func (s *DemoServer) maxVersion(path string) int {
	maxV := 1
	for v := range s.pages[path].Versions {
		maxV = max(maxV, v)
	}
	return maxV
}

func (s *DemoServer) paths() []string {
	out := make([]string, 0, len(s.pages))
	for p := range s.pages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// pageHandler returns a handler for a specific page path.
func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// "/" is a catch-all pattern
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		s.mu.RLock()
		pageDef := s.pages[path]
		version := s.versions[path]
		s.mu.RUnlock()

		// Fall back to the closest lower version.
		pageVersion, ok := pageDef.Versions[version]
		for v := version - 1; !ok && v >= 1; v-- {
			pageVersion, ok = pageDef.Versions[v]
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte(pageVersion.HTML))
		}
	}
}

func (s *DemoServer) sitemapIndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`, origin(r))
}

func (s *DemoServer) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, p := range s.paths() {
		fmt.Fprintf(&b, "  <url><loc>%s%s</loc></url>\n", origin(r), p)
	}
	// off-origin entries are ignored by discovery
	b.WriteString("  <url><loc>https://elsewhere.example/</loc></url>\n")
	b.WriteString("</urlset>")
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(b.String()))
}

func (s *DemoServer) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\n", origin(r))
}

// staticHandler serves placeholder static files.
func (s *DemoServer) staticHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("// demo script\n"))
	case strings.HasSuffix(r.URL.Path, ".css"):
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte("body { font-family: sans-serif; }\n"))
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
	}
}

// controlPanelHandler serves the HTML control panel.
func (s *DemoServer) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.New("control").Parse(controlPanelHTML)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := struct {
		Pages    map[string]PageDefinition
		Versions map[string]int
		Port     int
	}{
		Pages:    s.pages,
		Versions: s.versions,
		Port:     s.cfg.Port,
	}
	w.Header().Set("Content-Type", "text/html")
	_ = tmpl.Execute(w, data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setVersionHandler sets the version for one page, or for every page when
// path is empty.
func (s *DemoServer) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := r.FormValue("path")
	version, err := strconv.Atoi(r.FormValue("version"))
	if err != nil {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	if path == "" {
		s.SetAllVersions(version)
	} else {
		s.mu.Lock()
		_, ok := s.pages[path]
		if ok {
			s.versions[path] = min(max(version, 1), s.maxVersion(path))
		}
		s.mu.Unlock()
		if !ok {
			http.Error(w, "Unknown page", http.StatusNotFound)
			return
		}
	}

	writeJSON(w, map[string]any{
		"success": true,
		"path":    path,
		"version": version,
	})
}

// getVersionsHandler returns the current versions of all pages.
func (s *DemoServer) getVersionsHandler(w http.ResponseWriter, r *http.Request) {
	type PageInfo struct {
		Path              string   `json:"path"`
		Description       string   `json:"description"`
		CurrentVersion    int      `json:"current_version"`
		AvailableVersions []int    `json:"available_versions"`
		Findings          []string `json:"findings,omitempty"`
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var pages []PageInfo
	for _, path := range s.paths() {
		pageDef := s.pages[path]
		var versions []int
		for v := range pageDef.Versions {
			versions = append(versions, v)
		}
		sort.Ints(versions)
		info := PageInfo{
			Path:              path,
			Description:       pageDef.Description,
			CurrentVersion:    s.versions[path],
			AvailableVersions: versions,
		}
		if info.CurrentVersion == 1 {
			info.Findings = Findings[path]
		}
		pages = append(pages, info)
	}
	writeJSON(w, pages)
}

// bumpAllVersionsHandler increments the version of all pages.
func (s *DemoServer) bumpAllVersionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	for path := range s.versions {
		s.versions[path] = min(s.versions[path]+1, s.maxVersion(path))
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"success": true,
		"message": "All versions bumped",
	})
}

// resetVersionsHandler resets all pages to version 1.
func (s *DemoServer) resetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.SetAllVersions(1)
	writeJSON(w, map[string]any{
		"success": true,
		"message": "All versions reset to 1",
	})
}

const controlPanelHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Demo Server Control Panel</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 960px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { border-bottom: 2px solid #007bff; padding-bottom: 10px; }
        .page-card { background: white; border-radius: 8px; padding: 16px; margin: 12px 0; }
        .version-btn { padding: 6px 14px; border: none; border-radius: 4px; cursor: pointer; }
        .active { background: #007bff; color: white; }
        .inactive { background: #e9ecef; }
    </style>
</head>
<body>
    <h1>Demo Server Control Panel</h1>
    <p>Version 1 pages carry audit findings, version 2 fixes them. Audit, switch, audit again and compare the history.</p>
    <button onclick="post('/demo/bump-all')">Bump All Versions</button>
    <button onclick="post('/demo/reset')">Reset All to v1</button>

    {{range $path, $page := .Pages}}
    <div class="page-card">
        <a href="{{$path}}" target="_blank">{{$path}}</a> &middot; Current: v{{index $.Versions $path}}
        <div>{{$page.Description}}</div>
        {{range $v, $_ := $page.Versions}}
        <button class="version-btn {{if eq (index $.Versions $path) $v}}active{{else}}inactive{{end}}"
                onclick="post('/demo/set-version', 'path={{$path}}&version={{$v}}')">v{{$v}}</button>
        {{end}}
    </div>
    {{end}}

    <script>
        function post(url, body) {
            fetch(url, {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: body || ''
            }).then(() => location.reload());
        }
    </script>
</body>
</html>`
