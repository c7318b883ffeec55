package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

type Catalogs struct {
	Factions   FactionCatalog
	Strategies StrategyCatalog
	Weather    WeatherCatalog
	Items      ItemCatalog
	Incidents  IncidentCatalog
}

type FactionCatalog struct {
	Defs   []FactionDef
	ByID   map[string]FactionDef
	Digest string
}

type FactionDef struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Hostile       bool     `json:"hostile"`
	AutoFlee      bool     `json:"auto_flee"`
	Tech          string   `json:"tech,omitempty"`
	GroupKinds    []string `json:"group_kinds,omitempty"`
	PointsPerPawn float64  `json:"points_per_pawn,omitempty"`
	Names         []string `json:"names,omitempty"`
}

type StrategyCatalog struct {
	ByID      map[string]StrategyDef
	DefaultID string
	Digest    string
}

type StrategyDef struct {
	ID          string   `json:"id"`
	Default     bool     `json:"default,omitempty"`
	MinPoints   float64  `json:"min_points,omitempty"`
	AllowedTech []string `json:"allowed_tech,omitempty"`
	GroupKinds  []string `json:"group_kinds,omitempty"`
	ArriveModes []string `json:"arrive_modes,omitempty"`
}

type WeatherCatalog struct {
	IDs    []string
	ByID   map[string]WeatherDef
	Digest string
}

type WeatherDef struct {
	ID              string `json:"id"`
	Label           string `json:"label,omitempty"`
	TransitionTicks int    `json:"transition_ticks,omitempty"`
}

type ItemCatalog struct {
	IDs    []string
	ByID   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Haulable        bool     `json:"haulable,omitempty"`
	Blueprint       bool     `json:"blueprint,omitempty"`
	Frame           bool     `json:"frame,omitempty"`
	StackLimit      int      `json:"stack_limit,omitempty"`
	MadeFromStuff   bool     `json:"made_from_stuff,omitempty"`
	StuffCategories []string `json:"stuff_categories,omitempty"`
	StuffProps      []string `json:"stuff_props,omitempty"`
}

type IncidentCatalog struct {
	ByID   map[string]IncidentDef
	Digest string
}

type IncidentDef struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Severity      string `json:"severity,omitempty"`
	DurationTicks int    `json:"duration_ticks,omitempty"`
	CooldownTicks int    `json:"cooldown_ticks,omitempty"`
	Weather       string `json:"weather,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadFactions(filepath.Join(configDir, "factions.json"), &c.Factions); err != nil {
		return nil, err
	}
	if err := loadStrategies(filepath.Join(configDir, "strategies.json"), &c.Strategies); err != nil {
		return nil, err
	}
	if err := loadWeather(filepath.Join(configDir, "weather.json"), &c.Weather); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadIncidents(filepath.Join(configDir, "incidents.json"), &c.Incidents); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readValidated reads path, checks it against the embedded schema and decodes it into out.
func readValidated(path, schemaName string, out any) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if err := Validate(schemaName, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw, nil
}

// Validate checks raw JSON against one of the embedded catalog schemas, e.g. "items".
func Validate(schemaName string, raw []byte) error {
	s, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	file := name + ".schema.json"
	b, err := schemaFS.ReadFile("schemas/" + file)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(file, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return c.Compile(file)
}

func loadFactions(path string, out *FactionCatalog) error {
	var defs []FactionDef
	raw, err := readValidated(path, "factions", &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]FactionDef{}
	for _, d := range defs {
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("factions.json: duplicate id %q", d.ID)
		}
		out.ByID[d.ID] = d
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	out.Defs = defs
	return nil
}

func loadStrategies(path string, out *StrategyCatalog) error {
	var defs []StrategyDef
	raw, err := readValidated(path, "strategies", &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]StrategyDef{}
	for _, d := range defs {
		out.ByID[d.ID] = d
		if d.Default {
			if out.DefaultID != "" {
				return fmt.Errorf("strategies.json: more than one default (%s, %s)", out.DefaultID, d.ID)
			}
			out.DefaultID = d.ID
		}
	}
	if out.DefaultID == "" {
		return fmt.Errorf("strategies.json: missing default strategy")
	}
	return nil
}

func loadWeather(path string, out *WeatherCatalog) error {
	var defs []WeatherDef
	raw, err := readValidated(path, "weather", &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]WeatherDef{}
	for _, d := range defs {
		out.ByID[d.ID] = d
	}
	out.IDs = sortedKeys(out.ByID)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	var defs []ItemDef
	raw, err := readValidated(path, "items", &defs)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]ItemDef{}
	for _, d := range defs {
		if d.StackLimit == 0 {
			d.StackLimit = 1
		}
		out.ByID[d.ID] = d
	}
	out.IDs = sortedKeys(out.ByID)
	return nil
}

func loadIncidents(path string, out *IncidentCatalog) error {
	out.ByID = map[string]IncidentDef{}
	var defs []IncidentDef
	raw, err := readValidated(path, "incidents", &defs)
	if err != nil {
		// Allow missing: every simple incident then becomes a silent no-op.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)
	for _, d := range defs {
		out.ByID[d.ID] = d
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
