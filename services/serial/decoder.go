package serial

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// MinSerialLength is the shortest normalized input accepted.
const MinSerialLength = 3

// Year sources reported in a Result.
const (
	YearFromVIN    = "vin"
	YearFromSerial = "serial"
)

// ErrSerialTooShort is returned for empty or too-short inputs.
var ErrSerialTooShort = errors.New("serial must be at least 3 characters")

// Result is the outcome of a decode. Model is nil when no cue matched.
type Result struct {
	Brand          string   `json:"brand"`
	BrandName      string   `json:"brand_name"`
	Equipment      string   `json:"equipment"`
	Input          string   `json:"input"`
	Normalized     string   `json:"normalized"`
	Model          *string  `json:"model"`
	Family         *string  `json:"family,omitempty"`
	MatchedCue     *string  `json:"matched_cue,omitempty"`
	IsVIN          bool     `json:"is_vin"`
	Year           *int     `json:"year,omitempty"`
	YearSource     string   `json:"year_source,omitempty"`
	CandidateYears []int    `json:"candidate_years,omitempty"`
	PlateLocations []Plate  `json:"plate_locations"`
	Notes          []string `json:"notes"`
}

// Decoder combines the brand catalog with the VIN year table.
type Decoder struct {
	catalog *Catalog
	years   YearTable
	now     func() time.Time
}

// NewDecoder builds a Decoder. A nil years table disables VIN year decoding.
func NewDecoder(catalog *Catalog, years YearTable) *Decoder {
	return &Decoder{catalog: catalog, years: years, now: time.Now}
}

// WithClock overrides the clock used to bound candidate years.
func (d *Decoder) WithClock(now func() time.Time) *Decoder {
	d.now = now
	return d
}

// Catalog exposes the brand tables.
func (d *Decoder) Catalog() *Catalog {
	return d.catalog
}

// Decode looks up input against brandSlug's tables.
func (d *Decoder) Decode(brandSlug, input string) (*Result, error) {
	brand, err := d.catalog.Brand(brandSlug)
	if err != nil {
		return nil, err
	}

	normalized := Normalize(input)
	if len(normalized) < MinSerialLength {
		return nil, ErrSerialTooShort
	}

	res := &Result{
		Brand:          brand.Slug,
		BrandName:      brand.Name,
		Equipment:      brand.Equipment,
		Input:          input,
		Normalized:     normalized,
		PlateLocations: brand.Plates,
		Notes:          append([]string{}, brand.Notes...),
	}
	if res.PlateLocations == nil {
		res.PlateLocations = []Plate{}
	}

	if cue, ok := brand.Match(normalized); ok {
		model, family, prefix := cue.Model, cue.Family, cue.Prefix
		res.Model, res.MatchedCue = &model, &prefix
		if family != "" {
			res.Family = &family
		}
	} else {
		res.Notes = append(res.Notes, "No model prefix matched; check the data plate for the model number.")
	}

	currentYear := d.now().Year()
	switch {
	case brand.VIN && IsVIN(normalized):
		res.IsVIN = true
		if !CheckDigitValid(normalized) {
			res.Notes = append(res.Notes, "VIN check digit does not verify; many equipment PINs omit it.")
		}
		if year, candidates, ok := DecodeVINYear(normalized, d.years, currentYear); ok {
			res.Year, res.YearSource, res.CandidateYears = &year, YearFromVIN, candidates
		} else {
			res.Notes = append(res.Notes, "Model year code in position 10 is not recognized.")
		}
	case brand.SerialYear != nil:
		if year, candidates, ok := serialYear(brand.SerialYear, normalized, currentYear); ok {
			res.Year, res.YearSource, res.CandidateYears = &year, YearFromSerial, candidates
		}
	}
	return res, nil
}

func serialYear(rule *YearRule, s string, currentYear int) (int, []int, bool) {
	start := rule.Position - 1
	latest := currentYear + 1

	switch rule.Kind {
	case RuleLetterCycle:
		if start >= len(s) {
			return 0, nil, false
		}
		idx := strings.IndexByte(rule.Alphabet, s[start])
		if idx < 0 {
			return 0, nil, false
		}
		candidates := cycleYears(rule.BaseYear+idx, len(rule.Alphabet), latest)
		if len(candidates) == 0 {
			return 0, nil, false
		}
		return candidates[0], candidates, true

	case RuleDigits:
		end := start + rule.Length
		if end > len(s) {
			return 0, nil, false
		}
		n, err := strconv.Atoi(s[start:end])
		if err != nil || n < 0 {
			return 0, nil, false
		}
		if rule.Length == 4 {
			if n < 1950 || n > latest {
				return 0, nil, false
			}
			return n, []int{n}, true
		}
		year := 2000 + n
		if year > latest {
			year = 1900 + n
		}
		return year, []int{year}, true
	}
	return 0, nil, false
}
