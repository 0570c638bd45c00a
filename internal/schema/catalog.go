package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// modelPlaceholder in a header or label is replaced by the upper-cased model.
const modelPlaceholder = "{MODEL}"

// techLabelPrefix is the common label prefix of technical temperature points.
const techLabelPrefix = "技術溫測實溫_"

type catalogDoc struct {
	Version        int                      `yaml:"version"`
	DefaultModel   string                   `yaml:"defaultModel"`
	Models         []string                 `yaml:"models"`
	Rules          map[string]string        `yaml:"rules"`
	TechTempPoints []techPointDoc           `yaml:"techTempPoints"`
	AirPoints      map[string][]airPointDoc `yaml:"airVolumePoints"`
	Fields         []fieldDoc               `yaml:"fields"`
}

type techPointDoc struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type airPointDoc struct {
	ID     string  `yaml:"id"`
	Label  string  `yaml:"label"`
	Duct   string  `yaml:"duct"`
	Area   float64 `yaml:"area"`
	Status string  `yaml:"status"`
}

type fieldDoc struct {
	ID          string   `yaml:"id"`
	DataKey     string   `yaml:"dataKey"`
	CSVHeader   string   `yaml:"csvHeader"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"`
	RecordTypes []string `yaml:"recordTypes"`
	Calculated  bool     `yaml:"calculated"`
	InTable     bool     `yaml:"inTable"`
	Order       int      `yaml:"order"`
	Required    bool     `yaml:"required"`
	Validation  string   `yaml:"validation"`
	Models      []string `yaml:"models"` // empty means every model
}

// Catalog is the immutable field configuration of every supported model.
type Catalog struct {
	models       []string
	defaultModel string
	fields       map[string][]Descriptor
	airPoints    map[string][]AirPoint
	techPoints   []TechPoint
	rules        *RuleSet
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse builds a catalog from YAML. Every dataKey is checked against the
// record shape and every validation rule is compiled, so configuration
// mistakes surface here rather than while importing.
func Parse(b []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if doc.Version != 1 {
		return nil, errors.New("catalog: unsupported version")
	}
	if len(doc.Models) == 0 {
		return nil, errors.New("catalog: no models")
	}

	c := &Catalog{
		fields:    make(map[string][]Descriptor, len(doc.Models)),
		airPoints: make(map[string][]AirPoint, len(doc.Models)),
	}

	for _, m := range doc.Models {
		c.models = append(c.models, record.NormalizeModel(m))
	}
	c.defaultModel = record.NormalizeModel(doc.DefaultModel)
	if c.defaultModel == "" {
		c.defaultModel = c.models[len(c.models)-1]
	}
	if !c.Supported(c.defaultModel) {
		return nil, fmt.Errorf("catalog: default model %q is not listed", c.defaultModel)
	}

	rules, err := NewRuleSet(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c.rules = rules

	for _, p := range doc.TechTempPoints {
		if p.ID == "" || strings.Contains(p.ID, ".") {
			return nil, fmt.Errorf("catalog: invalid technical temperature point id %q", p.ID)
		}
		c.techPoints = append(c.techPoints, TechPoint{ID: p.ID, Label: p.Label})
	}

	for model, points := range doc.AirPoints {
		model = record.NormalizeModel(model)
		if !c.Supported(model) {
			return nil, fmt.Errorf("catalog: air points for unknown model %q", model)
		}
		for _, p := range points {
			if p.ID == "" || strings.Contains(p.ID, ".") {
				return nil, fmt.Errorf("catalog: invalid air point id %q for %s", p.ID, model)
			}
			ap := AirPoint{
				ID:     p.ID,
				Label:  p.Label,
				Duct:   p.Duct,
				Area:   p.Area,
				Normal: p.Status == "" || p.Status == "normal",
			}
			if ap.Area == 0 {
				ap.Area = record.DuctArea(p.Duct)
			}
			c.airPoints[model] = append(c.airPoints[model], ap)
		}
	}

	for _, model := range c.models {
		descs, err := c.buildFields(model, doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("catalog: model %s: %w", model, err)
		}
		c.fields[model] = descs
	}

	return c, nil
}

func (c *Catalog) buildFields(model string, docs []fieldDoc) ([]Descriptor, error) {
	upper := strings.ToUpper(model)
	var out []Descriptor
	seen := make(map[string]bool)

	add := func(d Descriptor) error {
		if seen[d.ID] {
			return fmt.Errorf("duplicate field id %q", d.ID)
		}
		seen[d.ID] = true
		out = append(out, d)
		return nil
	}

	for _, fd := range docs {
		if len(fd.Models) > 0 && !containsModel(fd.Models, model) {
			continue
		}
		d, err := c.descriptorFromDoc(fd, upper)
		if err != nil {
			return nil, err
		}
		if err := add(d); err != nil {
			return nil, err
		}
	}

	for i, ap := range c.airPoints[model] {
		for _, d := range airPointFields(ap, upper, 1000+i*10) {
			if err := add(d); err != nil {
				return nil, err
			}
		}
	}

	for i, tp := range c.techPoints {
		for _, d := range techPointFields(tp, 2000+i*10) {
			if err := add(d); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func (c *Catalog) descriptorFromDoc(fd fieldDoc, upperModel string) (Descriptor, error) {
	if fd.ID == "" {
		return Descriptor{}, errors.New("field without id")
	}
	path, err := record.ParsePath(fd.DataKey)
	if err != nil {
		return Descriptor{}, fmt.Errorf("field %s: %w", fd.ID, err)
	}
	ft, err := parseFieldType(fd.Type)
	if err != nil {
		return Descriptor{}, fmt.Errorf("field %s: %w", fd.ID, err)
	}
	cats, err := parseCategories(fd.RecordTypes)
	if err != nil {
		return Descriptor{}, fmt.Errorf("field %s: %w", fd.ID, err)
	}
	if fd.Validation != "" {
		if err := c.rules.Compile(fd.Validation); err != nil {
			return Descriptor{}, fmt.Errorf("field %s: %w", fd.ID, err)
		}
	}
	return Descriptor{
		ID:          fd.ID,
		DataKey:     path,
		CSVHeader:   strings.ReplaceAll(fd.CSVHeader, modelPlaceholder, upperModel),
		Label:       strings.ReplaceAll(fd.Label, modelPlaceholder, upperModel),
		Type:        ft,
		RecordTypes: cats,
		Calculated:  fd.Calculated,
		InTable:     fd.InTable,
		Order:       fd.Order,
		Required:    fd.Required,
		Validation:  fd.Validation,
	}, nil
}

func parseCategories(in []string) ([]record.Category, error) {
	if len(in) == 0 {
		return append([]record.Category(nil), record.Categories...), nil
	}
	out := make([]record.Category, 0, len(in))
	for _, s := range in {
		c := record.Category(s)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown record type %q", s)
		}
		out = append(out, c)
	}
	return out, nil
}

func containsModel(list []string, model string) bool {
	for _, m := range list {
		if record.NormalizeModel(m) == model {
			return true
		}
	}
	return false
}

// airPointFields generates the speed, temperature and volume fields of an
// air-volume measurement point.
func airPointFields(ap AirPoint, upperModel string, order int) []Descriptor {
	base := record.KeyAirVolumes + "." + ap.ID + "."
	header := upperModel + "_" + ap.Label
	evalOnly := []record.Category{record.EvaluationTeam}
	return []Descriptor{
		{
			ID:          "air_" + ap.ID + "_speed",
			DataKey:     record.MustParsePath(base + "speed"),
			CSVHeader:   header + "_風速",
			Label:       ap.Label + " 風速(m/s)",
			Type:        FieldNumber,
			RecordTypes: evalOnly,
			InTable:     true,
			Order:       order,
		},
		{
			ID:          "air_" + ap.ID + "_temp",
			DataKey:     record.MustParsePath(base + "temp"),
			CSVHeader:   header + "_溫度",
			Label:       ap.Label + " 溫度(℃)",
			Type:        FieldNumber,
			RecordTypes: evalOnly,
			InTable:     true,
			Order:       order + 1,
		},
		{
			ID:          "air_" + ap.ID + "_volume",
			DataKey:     record.MustParsePath(base + "volume"),
			CSVHeader:   header + "_風量",
			Label:       ap.Label + " 風量(Nm³/分)",
			Type:        FieldNumber,
			RecordTypes: evalOnly,
			Calculated:  true,
			InTable:     true,
			Order:       order + 2,
		},
	}
}

// techPointFields generates the five readings and the spread of a technical
// temperature point.
func techPointFields(tp TechPoint, order int) []Descriptor {
	key := tp.RecordKey()
	base := record.KeyActualTemps + "." + key + "."
	evalOnly := []record.Category{record.EvaluationTeam}
	out := make([]Descriptor, 0, 6)
	for i := 1; i <= 5; i++ {
		out = append(out, Descriptor{
			ID:          fmt.Sprintf("temp_%s_val%d", key, i),
			DataKey:     record.MustParsePath(fmt.Sprintf("%sval%d", base, i)),
			CSVHeader:   fmt.Sprintf("%s_%d", tp.Label, i),
			Label:       fmt.Sprintf("%s (%d)", tp.Label, i),
			Type:        FieldNumber,
			RecordTypes: evalOnly,
			InTable:     true,
			Order:       order + i - 1,
		})
	}
	out = append(out, Descriptor{
		ID:          "temp_" + key + "_diff",
		DataKey:     record.MustParsePath(base + "diff"),
		CSVHeader:   tp.Label + "_溫差",
		Label:       tp.Label + " 溫差",
		Type:        FieldNumber,
		RecordTypes: evalOnly,
		Calculated:  true,
		InTable:     true,
		Order:       order + 5,
	})
	return out
}
