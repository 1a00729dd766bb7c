package dataset

import "strings"

// SplitSpecies splits "Genus species" on the first space. Text without a
// space yields an empty species.
func SplitSpecies(text string) (genus, species string) {
	genus, species, _ = strings.Cut(text, " ")
	return genus, species
}

// ExtractYear returns the last four characters of a citation such as
// "Smith et al. 2015". No validation is done; shorter text is returned whole.
func ExtractYear(citation string) string {
	r := []rune(citation)
	if len(r) <= 4 {
		return citation
	}
	return string(r[len(r)-4:])
}

// ParseYear is the validating form of ExtractYear: tails that are not four
// ASCII digits become YearUnknown.
func ParseYear(citation string) string {
	y := ExtractYear(strings.TrimSpace(citation))
	if len(y) != 4 {
		return YearUnknown
	}
	for i := 0; i < len(y); i++ {
		if y[i] < '0' || y[i] > '9' {
			return YearUnknown
		}
	}
	return y
}
