package utils

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glancehq/glance-backend/internal/logger"
)

// Denylist holds app and window name fragments that should never be
// ingested or surfaced. Matching is lowercase substring on both sides,
// mirroring how window titles actually show up in OCR captures.
type Denylist struct {
	Apps    []string
	Windows []string
}

type settingsFile struct {
	BlacklistedApps    []string `yaml:"blacklisted_apps"`
	BlacklistedWindows []string `yaml:"blacklisted_windows"`
}

// LoadDenylist merges the public settings file with the private
// PRIVATE_BLACKLISTED_APPS / PRIVATE_BLACKLISTED_WINDOWS env lists.
// A missing or unreadable settings file is not an error.
func LoadDenylist(settingsPath string, log *logger.Logger) *Denylist {
	var sf settingsFile
	if data, err := os.ReadFile(settingsPath); err == nil {
		if err := yaml.Unmarshal(data, &sf); err != nil && log != nil {
			log.Warn("Could not parse settings file, ignoring it", "path", settingsPath, "error", err)
		}
	} else if log != nil {
		log.Debug("No settings file found", "path", settingsPath)
	}

	apps := mergeLowercase(sf.BlacklistedApps, splitCSV(os.Getenv("PRIVATE_BLACKLISTED_APPS")))
	windows := mergeLowercase(sf.BlacklistedWindows, splitCSV(os.Getenv("PRIVATE_BLACKLISTED_WINDOWS")))

	if log != nil {
		log.Info("Denylist loaded", "apps", len(apps), "windows", len(windows))
	}
	return &Denylist{Apps: apps, Windows: windows}
}

// Matches reports whether the given app or window name hits the denylist.
func (d *Denylist) Matches(appName, windowName string) bool {
	if d == nil {
		return false
	}
	app := strings.ToLower(appName)
	win := strings.ToLower(windowName)
	for _, a := range d.Apps {
		if a != "" && strings.Contains(app, a) {
			return true
		}
	}
	for _, w := range d.Windows {
		if w != "" && strings.Contains(win, w) {
			return true
		}
	}
	return false
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mergeLowercase(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, v := range list {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
