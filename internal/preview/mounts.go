package preview

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// AssetPrefix is the URL prefix under which mounted asset directories
// are served. The full shape is AssetPrefix + session ID + "/" + mount
// name + "/" + relative path, so each session's assets live in their
// own URL space and one session's teardown cannot break another's
// links.
const AssetPrefix = "/_livedoc/assets/"

// Mounts maps side-asset directories to named slots in one session's
// URL space, so relative links in the rendered artifact resolve.
// Mounting is idempotent per name: a repeat mount replaces the served
// directory. Each session owns its own registry.
type Mounts struct {
	mu   sync.RWMutex
	dirs map[string]string // name -> directory
}

// NewMounts creates an empty mount registry.
func NewMounts() *Mounts {
	return &Mounts{dirs: make(map[string]string)}
}

// Mount registers dir under name. A missing directory (the render
// produced no side assets) is skipped silently; this is not an error.
func (m *Mounts) Mount(name, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[name] = dir
	return nil
}

// Unmount removes a named mount.
func (m *Mounts) Unmount(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dirs, name)
}

// Clear removes every mount. Called on session teardown.
func (m *Mounts) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = make(map[string]string)
}

// Dir returns the directory mounted under name.
func (m *Mounts) Dir(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir, ok := m.dirs[name]
	return dir, ok
}

// Len returns the number of active mounts.
func (m *Mounts) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dirs)
}

// serve writes the file at rel inside the mount registered under name.
// The server resolves the owning session before delegating here.
func (m *Mounts) serve(w http.ResponseWriter, r *http.Request, name, rel string) {
	dir, ok := m.Dir(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	clean, ok := sanitizeRelPath(rel)
	if !ok {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(dir, filepath.FromSlash(clean))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	// Assets change between renders; never let the browser cache them.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	http.ServeFile(w, r, full)
}

// splitAssetPath extracts the session ID, mount name, and relative file
// path from a request path.
func splitAssetPath(urlPath string) (session, name, rel string, ok bool) {
	if !strings.HasPrefix(urlPath, AssetPrefix) {
		return "", "", "", false
	}
	rest := strings.TrimPrefix(urlPath, AssetPrefix)
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// sanitizeRelPath returns a cleaned relative path for an asset request.
// It rejects traversal and absolute-path tricks so asset serving cannot
// escape the mounted directory.
func sanitizeRelPath(rel string) (string, bool) {
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning to avoid "cleaning away"
	// traversal attempts.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}
