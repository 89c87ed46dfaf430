// Package validate holds the input checks applied before a questionnaire or
// consultation is written: resident (national) ID checksum and mobile phone
// format.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrResidentIDFormat   = errors.New("resident id must be 13 digits")
	ErrResidentIDChecksum = errors.New("resident id checksum mismatch")
	ErrPhoneFormat        = errors.New("phone must look like 010-1234-5678")
)

// residentIDWeights are the multipliers applied to the first 12 digits.
var residentIDWeights = [12]int{2, 3, 4, 5, 6, 7, 8, 9, 2, 3, 4, 5}

var phonePattern = regexp.MustCompile(`^0(10|11|16|17|18|19)-\d{3,4}-\d{4}$`)

// NormalizeResidentID strips a single hyphen between the birth-date part and
// the serial part ("901010-1234567" -> "9010101234567") and surrounding spaces.
func NormalizeResidentID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 14 && s[6] == '-' {
		return s[:6] + s[7:]
	}
	return s
}

// ResidentIDCheckDigit returns the expected final digit for the first twelve
// digits of a resident ID.
func ResidentIDCheckDigit(first12 string) (int, error) {
	if len(first12) != 12 {
		return 0, ErrResidentIDFormat
	}
	sum := 0
	for i := 0; i < 12; i++ {
		c := first12[i]
		if c < '0' || c > '9' {
			return 0, ErrResidentIDFormat
		}
		sum += int(c-'0') * residentIDWeights[i]
	}
	return (11 - sum%11) % 10, nil
}

// ResidentID validates a 13-digit resident ID, with or without the hyphen.
func ResidentID(s string) error {
	id := NormalizeResidentID(s)
	if len(id) != 13 {
		return ErrResidentIDFormat
	}
	want, err := ResidentIDCheckDigit(id[:12])
	if err != nil {
		return err
	}
	last := id[12]
	if last < '0' || last > '9' {
		return ErrResidentIDFormat
	}
	if int(last-'0') != want {
		return ErrResidentIDChecksum
	}
	return nil
}

// ComposeResidentID joins the six-digit front part and seven-digit back part
// as entered in the intake form.
func ComposeResidentID(front, back string) string {
	return strings.TrimSpace(front) + strings.TrimSpace(back)
}

// Phone validates a Korean mobile number in dashed form.
func Phone(s string) error {
	if !phonePattern.MatchString(strings.TrimSpace(s)) {
		return ErrPhoneFormat
	}
	return nil
}

// LooksLikePhone is a lenient check used when unpacking legacy free text.
func LooksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == ' ':
		default:
			return false
		}
	}
	return digits >= 9 && strings.HasPrefix(strings.TrimSpace(s), "0")
}

// MaskResidentID keeps the birth-date part and the sex digit and hides the
// rest: 901010-1234567 becomes 901010-1******.
func MaskResidentID(id string) string {
	digits := strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if digits == "" {
		return ""
	}
	if len(digits) < 7 {
		return "******"
	}
	return digits[:6] + "-" + digits[6:7] + strings.Repeat("*", len(digits)-7)
}
