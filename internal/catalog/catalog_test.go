package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nerrad567/playback-core/internal/infrastructure/config"
)

func testConfig(systemDir string) config.CatalogConfig {
	return config.CatalogConfig{
		ActiveCore: "snes9x",
		SystemDir:  systemDir,
		Cores: []config.CoreConfig{
			{
				Name:        "snes9x",
				DisplayName: "Nintendo - SNES / Famicom (Snes9x)",
				Extensions:  []string{"smc|SFC", ".swc", "fig"},
				Permissions: []string{"location"},
			},
			{
				Name:       "mgba",
				Extensions: []string{"gba", "gb", "gbc"},
				Firmware: []config.FirmwareConfig{
					{Path: "gba_bios.bin", Description: "Game Boy Advance BIOS"},
					{Path: "gb_bios.bin", Optional: true},
					{Path: "sgb_bios.bin", Optional: true},
				},
				Permissions: []string{"Camera"},
			},
			{
				Name:       "gambatte",
				Extensions: []string{"gb", "gbc", "dmg"},
			},
		},
	}
}

func TestNew(t *testing.T) {
	c, err := New(testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snes, err := c.Find("SNES9X")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if want := []string{"smc", "sfc", "swc", "fig"}; !reflect.DeepEqual(snes.Extensions, want) {
		t.Errorf("Extensions = %v, want %v", snes.Extensions, want)
	}

	mgba, _ := c.Find("mgba")
	if mgba.DisplayName != "mgba" {
		t.Errorf("DisplayName = %q, want name fallback", mgba.DisplayName)
	}

	if _, err := c.Find("bsnes"); !errors.Is(err, ErrCoreNotFound) {
		t.Errorf("Find(bsnes) error = %v, want ErrCoreNotFound", err)
	}
}

func TestNew_Errors(t *testing.T) {
	dup := testConfig("")
	dup.Cores = append(dup.Cores, config.CoreConfig{Name: "MGBA"})
	if _, err := New(dup); !errors.Is(err, ErrDuplicateCore) {
		t.Errorf("duplicate error = %v, want ErrDuplicateCore", err)
	}

	unknown := testConfig("")
	unknown.ActiveCore = "bsnes"
	if _, err := New(unknown); !errors.Is(err, ErrCoreNotFound) {
		t.Errorf("unknown active error = %v, want ErrCoreNotFound", err)
	}
}

func TestCapabilities(t *testing.T) {
	c, err := New(testConfig(""))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		active       string
		wantCamera   bool
		wantLocation bool
	}{
		{"snes9x", false, true},
		{"mgba", true, false},
		{"gambatte", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.active, func(t *testing.T) {
			if err := c.SetActive(tt.active); err != nil {
				t.Fatalf("SetActive() error = %v", err)
			}
			if got := c.CameraRequested(); got != tt.wantCamera {
				t.Errorf("CameraRequested() = %v, want %v", got, tt.wantCamera)
			}
			if got := c.LocationRequested(); got != tt.wantLocation {
				t.Errorf("LocationRequested() = %v, want %v", got, tt.wantLocation)
			}
		})
	}
}

func TestCoresForFile(t *testing.T) {
	c, _ := New(testConfig(""))

	tests := []struct {
		path string
		want []string
	}{
		{"/roms/Tetris.GB", []string{"mgba", "gambatte"}},
		{"zelda.sfc", []string{"snes9x"}},
		{"game.dmg", []string{"gambatte"}},
		{"readme", nil},
		{"archive.zip", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var got []string
			for _, core := range c.CoresForFile(tt.path) {
				got = append(got, core.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoresForFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAllExtensions(t *testing.T) {
	c, _ := New(testConfig(""))

	want := []string{"dmg", "fig", "gb", "gba", "gbc", "sfc", "smc", "swc"}
	if got := c.AllExtensions(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllExtensions() = %v, want %v", got, want)
	}
}

func TestMissingFirmware(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gb_bios.bin"), []byte{0}, 0o600); err != nil {
		t.Fatal(err)
	}

	c, _ := New(testConfig(dir))

	missing, err := c.MissingFirmware("mgba")
	if err != nil {
		t.Fatalf("MissingFirmware() error = %v", err)
	}
	var paths []string
	for _, fw := range missing {
		paths = append(paths, fw.Path)
	}
	if want := []string{"gba_bios.bin", "sgb_bios.bin"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("missing = %v, want %v", paths, want)
	}

	if _, err := c.MissingFirmware("bsnes"); !errors.Is(err, ErrCoreNotFound) {
		t.Errorf("unknown core error = %v", err)
	}

	_ = c.SetActive("mgba")
	if required, err := c.RequiredFirmwareMissing(); err != nil || !required {
		t.Errorf("RequiredFirmwareMissing() = %v, %v, want true", required, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "gba_bios.bin"), []byte{0}, 0o600); err != nil {
		t.Fatal(err)
	}
	if required, err := c.RequiredFirmwareMissing(); err != nil || required {
		t.Errorf("RequiredFirmwareMissing() = %v, %v, want false", required, err)
	}

	_ = c.SetActive("")
	if _, err := c.RequiredFirmwareMissing(); !errors.Is(err, ErrNoActiveCore) {
		t.Errorf("no active core error = %v", err)
	}
}
