// Package catalog answers read-only questions about the installed plugin
// cores: which core is active, which cores load a given file, which firmware
// files are missing, and whether the active core asked for the optional
// camera and location subsystems.
//
// The catalog is built once from configuration. Only the active core may
// change afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/playback-core/internal/infrastructure/config"
)

// Permission names a core may request.
const (
	PermissionCamera   = "camera"
	PermissionLocation = "location"
)

var (
	// ErrCoreNotFound is returned when no core has the requested name.
	ErrCoreNotFound = errors.New("catalog: core not found")

	// ErrDuplicateCore is returned when two cores share a name.
	ErrDuplicateCore = errors.New("catalog: duplicate core name")

	// ErrNoActiveCore is returned by queries that need a loaded core.
	ErrNoActiveCore = errors.New("catalog: no active core")
)

// Firmware is one file a core expects under the system directory.
type Firmware struct {
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
}

// Core is the declared metadata of one plugin core.
type Core struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Path        string     `json:"path,omitempty"`
	SystemName  string     `json:"system_name,omitempty"`
	Extensions  []string   `json:"supported_extensions"`
	Firmware    []Firmware `json:"firmware,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
}

// Supports reports whether the core loads files with the given extension.
// The leading dot is optional and case is ignored.
func (c Core) Supports(ext string) bool {
	ext = normaliseExtension(ext)
	if ext == "" {
		return false
	}
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Requests reports whether the core declared the permission.
func (c Core) Requests(permission string) bool {
	for _, p := range c.Permissions {
		if strings.EqualFold(p, permission) {
			return true
		}
	}
	return false
}

// Catalog is the set of installed cores plus the active one.
// It is safe for concurrent use.
type Catalog struct {
	cores     []Core
	byName    map[string]int
	systemDir string

	mu     sync.RWMutex
	active string
}

// New builds the catalog from configuration. Extensions are normalised to
// lower case without a leading dot; entries of the form "a|b" are split.
func New(cfg config.CatalogConfig) (*Catalog, error) {
	c := &Catalog{
		byName:    make(map[string]int, len(cfg.Cores)),
		systemDir: cfg.SystemDir,
	}

	for _, cc := range cfg.Cores {
		key := strings.ToLower(cc.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCore, cc.Name)
		}
		c.byName[key] = len(c.cores)
		c.cores = append(c.cores, fromConfig(cc))
	}

	if cfg.ActiveCore != "" {
		if err := c.SetActive(cfg.ActiveCore); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func fromConfig(cc config.CoreConfig) Core {
	core := Core{
		Name:        cc.Name,
		DisplayName: cc.DisplayName,
		Path:        cc.Path,
		SystemName:  cc.SystemName,
		Permissions: cc.Permissions,
		Extensions:  []string{},
	}
	if core.DisplayName == "" {
		core.DisplayName = cc.Name
	}

	seen := make(map[string]struct{})
	for _, raw := range cc.Extensions {
		for _, part := range strings.Split(raw, "|") {
			ext := normaliseExtension(part)
			if ext == "" {
				continue
			}
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			core.Extensions = append(core.Extensions, ext)
		}
	}

	for _, fw := range cc.Firmware {
		core.Firmware = append(core.Firmware, Firmware{
			Path:        fw.Path,
			Description: fw.Description,
			Optional:    fw.Optional,
		})
	}
	return core
}

func normaliseExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Cores returns every installed core in configuration order.
func (c *Catalog) Cores() []Core {
	out := make([]Core, len(c.cores))
	copy(out, c.cores)
	return out
}

// Find returns the core with the given name, ignoring case.
func (c *Catalog) Find(name string) (Core, error) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Core{}, fmt.Errorf("%w: %q", ErrCoreNotFound, name)
	}
	return c.cores[i], nil
}

// SetActive marks the named core as loaded. An empty name unloads.
func (c *Catalog) SetActive(name string) error {
	if name != "" {
		core, err := c.Find(name)
		if err != nil {
			return err
		}
		name = core.Name
	}

	c.mu.Lock()
	c.active = name
	c.mu.Unlock()
	return nil
}

// Active returns the loaded core.
func (c *Catalog) Active() (Core, bool) {
	c.mu.RLock()
	name := c.active
	c.mu.RUnlock()

	if name == "" {
		return Core{}, false
	}
	core, err := c.Find(name)
	return core, err == nil
}

// CameraRequested reports whether the active core asked for the camera
// subsystem. False when no core is loaded.
func (c *Catalog) CameraRequested() bool {
	core, ok := c.Active()
	return ok && core.Requests(PermissionCamera)
}

// LocationRequested reports whether the active core asked for the location
// subsystem. False when no core is loaded.
func (c *Catalog) LocationRequested() bool {
	core, ok := c.Active()
	return ok && core.Requests(PermissionLocation)
}

// CoresForFile returns the cores that support the file's extension.
func (c *Catalog) CoresForFile(path string) []Core {
	ext := filepath.Ext(path)
	var out []Core
	for _, core := range c.cores {
		if core.Supports(ext) {
			out = append(out, core)
		}
	}
	return out
}

// AllExtensions returns the union of supported extensions, sorted.
func (c *Catalog) AllExtensions() []string {
	seen := make(map[string]struct{})
	for _, core := range c.cores {
		for _, e := range core.Extensions {
			seen[e] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// MissingFirmware returns the firmware of the named core that is absent from
// the system directory. Optional files are included and flagged.
func (c *Catalog) MissingFirmware(name string) ([]Firmware, error) {
	core, err := c.Find(name)
	if err != nil {
		return nil, err
	}

	var missing []Firmware
	for _, fw := range core.Firmware {
		_, err := os.Stat(filepath.Join(c.systemDir, fw.Path))
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			missing = append(missing, fw)
		default:
			return nil, fmt.Errorf("checking firmware %s: %w", fw.Path, err)
		}
	}
	return missing, nil
}

// RequiredFirmwareMissing reports whether the active core lacks any
// non-optional firmware.
func (c *Catalog) RequiredFirmwareMissing() (bool, error) {
	core, ok := c.Active()
	if !ok {
		return false, ErrNoActiveCore
	}

	missing, err := c.MissingFirmware(core.Name)
	if err != nil {
		return false, err
	}
	for _, fw := range missing {
		if !fw.Optional {
			return true, nil
		}
	}
	return false, nil
}

// SystemDir returns the directory firmware paths are relative to.
func (c *Catalog) SystemDir() string {
	return c.systemDir
}
