package plugins

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ManifestFile is the manifest name inside each plugin directory
const ManifestFile = "plugin.json"

// ErrPluginNotFound is returned by lookups for unknown plugin ids
var ErrPluginNotFound = errors.New("plugin not found")

// Registry scans the plugin directory and maintains the ordered in-memory plugin list
type Registry struct {
	pluginDir string
	plugins   []LoadedPlugin
	byID      map[string]int // index into plugins
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewRegistry creates a new plugin registry
func NewRegistry(pluginDir string, logger *slog.Logger) *Registry {
	return &Registry{
		pluginDir: pluginDir,
		byID:      make(map[string]int),
		logger:    logger.With("component", "plugin_registry"),
	}
}

// Scan loads every plugin under the plugin directory, replacing the current set.
// Directories are visited in lexical order; the first plugin claiming an id wins.
func (r *Registry) Scan() error {
	entries, err := os.ReadDir(r.pluginDir)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var loaded []LoadedPlugin
	seen := make(map[string]string)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirName := entry.Name()
		pluginPath := filepath.Join(r.pluginDir, dirName)

		plugin, err := LoadPlugin(pluginPath)
		if err != nil {
			r.logger.Warn("Skipping plugin", "dir", dirName, "error", err)
			continue
		}

		if owner, dup := seen[plugin.Manifest.ID]; dup {
			r.logger.Warn("Duplicate plugin id, keeping first",
				"id", plugin.Manifest.ID,
				"kept", owner,
				"skipped", dirName,
			)
			continue
		}
		seen[plugin.Manifest.ID] = dirName

		if plugin.IconDataURL == "" {
			r.logger.Warn("Plugin icon not resolved", "id", plugin.Manifest.ID, "icon", plugin.Manifest.Icon)
		}

		loaded = append(loaded, plugin)

		r.logger.Info("Loaded plugin",
			"id", plugin.Manifest.ID,
			"name", plugin.Manifest.Name,
			"version", plugin.Manifest.Version,
			"lines", len(plugin.Manifest.Lines),
		)
	}

	r.Replace(loaded)
	return nil
}

// LoadPlugin reads and validates a single plugin directory
func LoadPlugin(dir string) (LoadedPlugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return LoadedPlugin{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return LoadedPlugin{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := manifest.Validate(); err != nil {
		return LoadedPlugin{}, err
	}

	entry := joinEntry(dir, manifest.Entry)
	if _, err := os.Stat(entry); err != nil {
		return LoadedPlugin{}, fmt.Errorf("probe entry not found: %w", err)
	}

	plugin := LoadedPlugin{Manifest: manifest, Dir: dir}
	if manifest.Icon != "" {
		if url, err := iconDataURL(filepath.Join(dir, manifest.Icon)); err == nil {
			plugin.IconDataURL = url
		}
	}
	return plugin, nil
}

// iconDataURL reads an icon file and encodes it as a data URL
func iconDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	// Strip parameters such as "; charset=utf-8"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func joinEntry(dir, entry string) string {
	return filepath.Join(dir, filepath.FromSlash(entry))
}

// Replace swaps the whole plugin set. Duplicate ids after the first are dropped.
func (r *Registry) Replace(plugins []LoadedPlugin) {
	list := make([]LoadedPlugin, 0, len(plugins))
	byID := make(map[string]int, len(plugins))
	for _, p := range plugins {
		if _, dup := byID[p.Manifest.ID]; dup {
			continue
		}
		byID[p.Manifest.ID] = len(list)
		list = append(list, p.Clone())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = list
	r.byID = byID
}

// Snapshot returns a deep copy of all plugins in registry order
func (r *Registry) Snapshot() []LoadedPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]LoadedPlugin, len(r.plugins))
	for i, p := range r.plugins {
		result[i] = p.Clone()
	}
	return result
}

// GetByID retrieves a copy of a plugin by its ID
func (r *Registry) GetByID(id string) (LoadedPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return LoadedPlugin{}, false
	}
	return r.plugins[idx].Clone(), true
}

// IDs returns plugin ids in registry order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		ids[i] = p.Manifest.ID
	}
	return ids
}

// Len returns the number of registered plugins
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
