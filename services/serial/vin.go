package serial

import "strings"

// VINLength is the length of a standard 17 character VIN / PIN.
const VINLength = 17

const vinAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

var vinWeights = [VINLength]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// IsVIN reports whether s (normalized) is 17 characters from the VIN alphabet.
func IsVIN(s string) bool {
	if len(s) != VINLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(vinAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// CheckDigitValid verifies position 9 of a North American VIN.
// Equipment PINs often skip the check digit, so callers treat failure as advisory.
func CheckDigitValid(vin string) bool {
	if !IsVIN(vin) {
		return false
	}
	sum := 0
	for i := 0; i < VINLength; i++ {
		sum += transliterate(vin[i]) * vinWeights[i]
	}
	want := byte('0' + sum%11)
	if sum%11 == 10 {
		want = 'X'
	}
	return vin[8] == want
}

func transliterate(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	switch c {
	case 'A', 'J':
		return 1
	case 'B', 'K', 'S':
		return 2
	case 'C', 'L', 'T':
		return 3
	case 'D', 'M', 'U':
		return 4
	case 'E', 'N', 'V':
		return 5
	case 'F', 'W':
		return 6
	case 'G', 'P', 'X':
		return 7
	case 'H', 'Y':
		return 8
	case 'R', 'Z':
		return 9
	}
	return 0
}

// DecodeVINYear resolves the model year from the 10th character. Candidates
// are every cycle year not after currentYear+1, newest first; the first is chosen.
func DecodeVINYear(vin string, years YearTable, currentYear int) (int, []int, bool) {
	if len(vin) != VINLength || years == nil {
		return 0, nil, false
	}
	base, ok := years.BaseYear(vin[9])
	if !ok {
		return 0, nil, false
	}
	candidates := cycleYears(base, VINCycle, currentYear+1)
	if len(candidates) == 0 {
		return 0, nil, false
	}
	return candidates[0], candidates, true
}
