package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigs(t *testing.T) {
	cats, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	if cats.Strategies.DefaultID != "ImmediateAttack" {
		t.Fatalf("default strategy=%q want=ImmediateAttack", cats.Strategies.DefaultID)
	}
	if _, ok := cats.Strategies.ByID["Siege"]; !ok {
		t.Fatalf("expected Siege strategy")
	}
	if _, ok := cats.Weather.ByID["Rain"]; !ok {
		t.Fatalf("expected Rain weather")
	}
	for _, id := range []string{"SolarFlare", "Eclipse", "Aurora", "ToxicFallout", "ShortCircuit"} {
		if _, ok := cats.Incidents.ByID[id]; !ok {
			t.Fatalf("missing incident %s", id)
		}
	}
	hostile := 0
	for _, f := range cats.Factions.Defs {
		if f.Hostile {
			hostile++
		}
	}
	if hostile == 0 {
		t.Fatalf("expected at least one hostile faction")
	}
	if cats.Items.ByID["Blueprint_Wall"].StackLimit != 1 {
		t.Fatalf("missing stack_limit should default to 1")
	}
	for _, d := range []string{cats.Factions.Digest, cats.Strategies.Digest, cats.Weather.Digest, cats.Items.Digest, cats.Incidents.Digest} {
		if len(d) != 64 {
			t.Fatalf("digest %q not sha256 hex", d)
		}
	}
}

func TestLoad_SchemaRejectsUnknownField(t *testing.T) {
	dir := copyConfigs(t)
	bad := `[{"id":"Rain","wetness":3}]`
	if err := os.WriteFile(filepath.Join(dir, "weather.json"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "weather.json") {
		t.Fatalf("expected weather.json schema error, got %v", err)
	}
}

func TestLoad_MissingIncidentsAllowed(t *testing.T) {
	dir := copyConfigs(t)
	if err := os.Remove(filepath.Join(dir, "incidents.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	cats, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cats.Incidents.ByID) != 0 || cats.Incidents.Digest == "" {
		t.Fatalf("incidents=%d digest=%q", len(cats.Incidents.ByID), cats.Incidents.Digest)
	}
}

func TestLoad_RequiresDefaultStrategy(t *testing.T) {
	dir := copyConfigs(t)
	if err := os.WriteFile(filepath.Join(dir, "strategies.json"), []byte(`[{"id":"Siege"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected missing default strategy error")
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	if err := Validate("nope", []byte(`[]`)); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

func copyConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"factions.json", "strategies.json", "weather.json", "items.json", "incidents.json"} {
		b, err := os.ReadFile(filepath.Join("../../../configs", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
