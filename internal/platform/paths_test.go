package platform

import (
	"path/filepath"
	"testing"
)

func TestPathsForLinuxWithXDG(t *testing.T) {
	p, err := PathsFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}, "/fallback/config", "/fallback/data", "ctrain")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	want := Paths{
		ConfigPath: filepath.Join("/xdg/config", "ctrain", "config.toml"),
		EnvPath:    filepath.Join("/xdg/config", "ctrain", ".env"),
		DataDir:    filepath.Join("/xdg/data", "ctrain"),
		DBPath:     filepath.Join("/xdg/data", "ctrain", "ctrain.db"),
		LogDir:     filepath.Join("/xdg/data", "ctrain", "logs"),
		ArchiveDir: filepath.Join("/xdg/data", "ctrain", "submissions"),
	}
	if p != want {
		t.Fatalf("PathsFor() = %#v, want %#v", p, want)
	}
}

func TestPathsForWindowsUsesAppData(t *testing.T) {
	p, err := PathsFor("windows", map[string]string{
		"APPDATA":      `C:\Users\me\AppData\Roaming`,
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
	}, `C:\fallback\config`, `C:\fallback\data`, "ctrain")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}

	wantConfig := filepath.Join(`C:\Users\me\AppData\Roaming`, "ctrain", "config.toml")
	wantDB := filepath.Join(`C:\Users\me\AppData\Local`, "ctrain", "ctrain.db")
	if p.ConfigPath != wantConfig {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if p.DBPath != wantDB {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

func TestPathsForDarwinIgnoresXDG(t *testing.T) {
	p, err := PathsFor("darwin", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
	}, "/Users/me/Library/Application Support", "/Users/me/Library/Application Support", "ctrain-dev")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}
	want := filepath.Join("/Users/me/Library/Application Support", "ctrain-dev", "ctrain-dev.db")
	if p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("linux", nil, "", "/data", "ctrain"); err == nil {
		t.Fatal("expected error for empty base dirs")
	}
	if _, err := PathsFor("linux", nil, "/config", "/data", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

func TestDefaultPathsWithOptionsDevSuffix(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	p, err := DefaultPathsWithOptions(Options{AppName: "ctrain", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(p.DBPath) != "ctrain-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}
