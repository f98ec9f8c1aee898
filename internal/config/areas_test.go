package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

func writeAreas(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "areas.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp areas file: %v", err)
	}
	return path
}

func TestLoadAreas(t *testing.T) {
	path := writeAreas(t, `
- area: Basement
  background: default
  abbreviation: BSM
- area: Courtroom 1
  background: defaultcourtroom
  locking_allowed: true
- area: Arcade
  background: defaultcourtroom
  is_hub: true
  hubtype: arcade
`)
	seeds, err := LoadAreas(path)
	if err != nil {
		t.Fatalf("LoadAreas: %v", err)
	}
	if len(seeds) != 3 {
		t.Fatalf("len(seeds) = %d, want 3", len(seeds))
	}
	if seeds[0].Name != "Basement" || seeds[0].Abbreviation != "BSM" {
		t.Fatalf("first seed = %+v", seeds[0])
	}
	if !seeds[1].LockingAllowed {
		t.Fatalf("locking_allowed not parsed")
	}
	if !seeds[2].IsHub || seeds[2].HubType != domain.HubArcade {
		t.Fatalf("hub seed = %+v", seeds[2])
	}
}

func TestLoadAreasRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"missing file":       filepath.Join(t.TempDir(), "nope.yaml"),
		"empty list":         writeAreas(t, "[]\n"),
		"missing background": writeAreas(t, "- area: Basement\n"),
		"bad hub type":       writeAreas(t, "- area: H\n  background: bg\n  is_hub: true\n  hubtype: palace\n"),
		"not yaml":           writeAreas(t, "{{{"),
	}
	for name, path := range cases {
		if _, err := LoadAreas(path); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}
