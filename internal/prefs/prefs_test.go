package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePrefs(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		contents string // empty means no file
		want     Prefs
	}{
		{"missing file", "", Prefs{Theme: defaultTheme}},
		{"theme only", "theme = \"Slate\"\n", Prefs{Theme: "Slate"}},
		{"trims values", "theme = \" Slate \"\ndefault_index = \"  movies \"\n", Prefs{Theme: "Slate", DefaultIndex: "movies"}},
		{"empty theme", "theme = \"\"\ndefault_index = \"books\"\n", Prefs{Theme: defaultTheme, DefaultIndex: "books"}},
		{"invalid toml", "not valid toml {{{\n", Prefs{Theme: defaultTheme}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if tt.contents != "" {
				writePrefs(t, path, tt.contents)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Load = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "sift", "prefs.toml"), "default_index = \"movies\"\n")

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.DefaultIndex != "movies" || got.Theme != defaultTheme {
		t.Fatalf("Load(\"\") = %+v, want default theme and movies", got)
	}
}

func TestSave_CreatesDirsAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "prefs.toml")
	want := Prefs{Theme: "Slate", DefaultIndex: "movies"}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != want {
		t.Fatalf("Load after Save = %+v, want %+v", got, want)
	}
}

func TestSave_OmitsEmptyDefaultIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(path, Prefs{}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "default_index") {
		t.Fatalf("saved prefs = %q, want no default_index key", data)
	}
	if !strings.Contains(string(data), defaultTheme) {
		t.Fatalf("saved prefs = %q, want theme %s", data, defaultTheme)
	}
}

func TestUpdate_AppliesChangeAndKeepsOtherFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(path, Prefs{Theme: "Slate"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := Update(path, func(p *Prefs) { p.DefaultIndex = "  movies " })
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	want := Prefs{Theme: "Slate", DefaultIndex: "movies"}
	if got != want {
		t.Fatalf("Update = %+v, want %+v", got, want)
	}
	loaded, _ := Load(path)
	if loaded != want {
		t.Fatalf("Load after Update = %+v, want %+v", loaded, want)
	}
}
