package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDenylistMatches(t *testing.T) {
	d := &Denylist{
		Apps:    []string{"banking", "1password"},
		Windows: []string{"incognito"},
	}

	cases := []struct {
		app, window string
		want        bool
	}{
		{"My Banking App", "Overview", true},
		{"Chrome", "New Tab - Incognito", true},
		{"Chrome", "Documentation", false},
		{"1Password 8", "", true},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := d.Matches(tc.app, tc.window); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.app, tc.window, got, tc.want)
		}
	}
}

func TestDenylistNilReceiver(t *testing.T) {
	var d *Denylist
	if d.Matches("anything", "anything") {
		t.Fatalf("nil denylist must match nothing")
	}
}

func TestLoadDenylistMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "blacklisted_apps:\n  - Banking\nblacklisted_windows:\n  - Incognito\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRIVATE_BLACKLISTED_APPS", "1Password, Signal")
	t.Setenv("PRIVATE_BLACKLISTED_WINDOWS", "")

	d := LoadDenylist(path, nil)
	if !d.Matches("Banking App", "") {
		t.Fatalf("file entries must apply")
	}
	if !d.Matches("Signal Desktop", "") {
		t.Fatalf("env entries must apply")
	}
	if !d.Matches("", "Chrome Incognito") {
		t.Fatalf("window entries must apply")
	}
	if d.Matches("Chrome", "New Tab") {
		t.Fatalf("unexpected match")
	}
}

func TestLoadDenylistMissingFile(t *testing.T) {
	t.Setenv("PRIVATE_BLACKLISTED_APPS", "")
	t.Setenv("PRIVATE_BLACKLISTED_WINDOWS", "")
	d := LoadDenylist(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if d == nil {
		t.Fatalf("missing settings file must still yield a denylist")
	}
	if d.Matches("Chrome", "New Tab") {
		t.Fatalf("empty denylist must match nothing")
	}
}
