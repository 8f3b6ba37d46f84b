// Package refcode derives the human-readable reference code assigned to each account.
package refcode

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filler replaces an initial when a name component has no usable letter.
const Filler = 'X'

var (
	pattern       = regexp.MustCompile(`^[A-Z]{2}[0-9]{6}$`)
	saltedPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{7}$`)
)

// Generate returns two initials followed by the birth date as DDMMYY, e.g. "JP150399".
func Generate(firstName, lastName string, dob time.Time) string {
	return string([]rune{initial(firstName), initial(lastName)}) + dob.Format("020106")
}

// GenerateSalted appends a single digit to the canonical code. It is used when
// the canonical code already belongs to another account.
func GenerateSalted(firstName, lastName string, dob time.Time, salt int) string {
	if salt < 0 {
		salt = -salt
	}
	return fmt.Sprintf("%s%d", Generate(firstName, lastName, dob), salt%10)
}

// Valid reports whether code is a canonical or salted reference code.
func Valid(code string) bool {
	return pattern.MatchString(code) || saltedPattern.MatchString(code)
}

func initial(name string) rune {
	for _, word := range strings.Fields(fold(name)) {
		for _, r := range word {
			r = unicode.ToUpper(r)
			if r >= 'A' && r <= 'Z' {
				return r
			}
		}
	}
	return Filler
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
