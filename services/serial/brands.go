// Package serial decodes OEM serial numbers and VINs into model, family and
// build year using embedded per-brand reference tables.
package serial

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/brands.yaml
var brandsYAML []byte

// Year rule kinds
const (
	RuleLetterCycle = "letter_cycle"
	RuleDigits      = "digits"
)

// Cue maps a model-number prefix to a model description.
type Cue struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Model  string `yaml:"model" json:"model"`
	Family string `yaml:"family" json:"family"`

	normalized string
}

// YearRule locates the build year inside a (non-VIN) serial.
// Position is 1-based on the normalized serial.
type YearRule struct {
	Kind     string `yaml:"kind" json:"kind"`
	Position int    `yaml:"position" json:"position"`
	Length   int    `yaml:"length" json:"length,omitempty"`
	Alphabet string `yaml:"alphabet" json:"alphabet,omitempty"`
	BaseYear int    `yaml:"base_year" json:"base_year,omitempty"`
}

// Plate tells the user where the data plate is found.
type Plate struct {
	Location string `yaml:"location" json:"location"`
	Notes    string `yaml:"notes" json:"notes,omitempty"`
}

// Brand is one OEM's decoding table.
type Brand struct {
	Slug       string    `yaml:"slug" json:"slug"`
	Name       string    `yaml:"name" json:"name"`
	Equipment  string    `yaml:"equipment" json:"equipment"`
	VIN        bool      `yaml:"vin" json:"vin"`
	Cues       []Cue     `yaml:"cues" json:"-"`
	SerialYear *YearRule `yaml:"serial_year" json:"serial_year,omitempty"`
	Plates     []Plate   `yaml:"plates" json:"plates"`
	Notes      []string  `yaml:"notes" json:"notes,omitempty"`
}

// Catalog holds every brand, keyed by slug.
type Catalog struct {
	brands map[string]*Brand
	order  []string
}

var (
	// ErrUnknownBrand is returned for slugs missing from the catalog.
	ErrUnknownBrand = errors.New("unknown brand")
)

// LoadCatalog parses a brands document and prepares cues for matching.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Brands []*Brand `yaml:"brands"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse brand tables: %w", err)
	}

	c := &Catalog{brands: make(map[string]*Brand, len(doc.Brands))}
	for _, b := range doc.Brands {
		b.Slug = strings.ToLower(strings.TrimSpace(b.Slug))
		if b.Slug == "" {
			return nil, errors.New("brand with empty slug")
		}
		if _, dup := c.brands[b.Slug]; dup {
			return nil, fmt.Errorf("duplicate brand %q", b.Slug)
		}
		if err := b.SerialYear.validate(); err != nil {
			return nil, fmt.Errorf("brand %s: %w", b.Slug, err)
		}
		for i := range b.Cues {
			b.Cues[i].normalized = Normalize(b.Cues[i].Prefix)
		}
		// Longest prefix first; equal lengths keep file order.
		sort.SliceStable(b.Cues, func(i, j int) bool {
			return len(b.Cues[i].normalized) > len(b.Cues[j].normalized)
		})
		c.brands[b.Slug] = b
		c.order = append(c.order, b.Slug)
	}
	return c, nil
}

// DefaultCatalog loads the embedded brand tables.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(brandsYAML)
}

// Brand returns the table for slug.
func (c *Catalog) Brand(slug string) (*Brand, error) {
	b, ok := c.brands[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return nil, ErrUnknownBrand
	}
	return b, nil
}

// Brands lists every brand in file order.
func (c *Catalog) Brands() []*Brand {
	out := make([]*Brand, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.brands[slug])
	}
	return out
}

// Match returns the longest cue that prefixes the normalized input.
func (b *Brand) Match(normalized string) (*Cue, bool) {
	for i := range b.Cues {
		cue := &b.Cues[i]
		if cue.normalized != "" && strings.HasPrefix(normalized, cue.normalized) {
			return cue, true
		}
	}
	return nil, false
}

func (r *YearRule) validate() error {
	if r == nil {
		return nil
	}
	if r.Position < 1 {
		return errors.New("serial_year position must be 1 or greater")
	}
	switch r.Kind {
	case RuleLetterCycle:
		if r.Alphabet == "" || r.BaseYear == 0 {
			return errors.New("letter_cycle needs alphabet and base_year")
		}
	case RuleDigits:
		if r.Length != 2 && r.Length != 4 {
			return errors.New("digits rule length must be 2 or 4")
		}
	default:
		return fmt.Errorf("unknown serial_year kind %q", r.Kind)
	}
	return nil
}

// Normalize trims and uppercases s and drops spaces, dashes and dots.
// Any other character is kept so the prefix match sees it.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
