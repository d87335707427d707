package serial

import (
	"fmt"
	"sort"
	"strings"

	"liftworks/models/lookup"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VINCycle is the number of years after which a 10th-position code repeats.
const VINCycle = 30

// YearTable resolves a VIN 10th-position code to the first year of its cycle.
type YearTable interface {
	BaseYear(code byte) (int, bool)
}

// MapYearTable is an in-memory YearTable.
type MapYearTable map[byte]int

// BaseYear implements YearTable.
func (m MapYearTable) BaseYear(code byte) (int, bool) {
	y, ok := m[code]
	return y, ok
}

// DefaultYearCodes returns the standard code table: A..Y (no I, O, Q, U, Z)
// for 1980-2000 and 1..9 for 2001-2009.
func DefaultYearCodes() MapYearTable {
	t := make(MapYearTable, 30)
	year := 1980
	for _, c := range "ABCDEFGHJKLMNPRSTVWXY" {
		t[byte(c)] = year
		year++
	}
	for c := byte('1'); c <= '9'; c++ {
		t[c] = year
		year++
	}
	return t
}

// LoadYearTable reads the code table from the database.
func LoadYearTable(db *gorm.DB) (MapYearTable, error) {
	var rows []lookup.VinYearCode
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load vin year codes: %w", err)
	}
	t := make(MapYearTable, len(rows))
	for _, r := range rows {
		code := strings.ToUpper(r.Code)
		if len(code) != 1 {
			continue
		}
		t[code[0]] = r.Year
	}
	return t, nil
}

// SeedYearCodes inserts the default codes that are missing and reports how many
// rows were added. Existing rows keep their year.
func SeedYearCodes(db *gorm.DB) (int, error) {
	codes := DefaultYearCodes()
	keys := make([]int, 0, len(codes))
	for c := range codes {
		keys = append(keys, int(c))
	}
	sort.Ints(keys)

	rows := make([]lookup.VinYearCode, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, lookup.VinYearCode{Code: string(rune(k)), Year: codes[byte(k)]})
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("seed vin year codes: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// cycleYears lists base, base+cycle, ... up to latest, newest first.
func cycleYears(base, cycle, latest int) []int {
	var years []int
	for y := base; y <= latest; y += cycle {
		years = append(years, y)
	}
	for i, j := 0, len(years)-1; i < j; i, j = i+1, j-1 {
		years[i], years[j] = years[j], years[i]
	}
	return years
}
