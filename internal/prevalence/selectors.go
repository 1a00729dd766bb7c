package prevalence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/batcov/internal/dataset"
)

// ErrInvalidArgument is returned for unknown selectors, fields or options.
var ErrInvalidArgument = errors.New("invalid argument")

// GenusSelector narrows aggregation to one virus genus, both, or all.
type GenusSelector int

const (
	Alphacoronavirus GenusSelector = iota + 1
	Betacoronavirus
	Compare
	Any
)

const (
	genusAlpha = "alphacoronavirus"
	genusBeta  = "betacoronavirus"
)

// GenusSelectors lists selectors in dashboard order.
func GenusSelectors() []GenusSelector {
	return []GenusSelector{Alphacoronavirus, Betacoronavirus, Compare, Any}
}

// ParseGenusSelector is case-insensitive and also accepts the dashboard
// labels "Compare them!" and "All".
func ParseGenusSelector(s string) (GenusSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case genusAlpha:
		return Alphacoronavirus, nil
	case genusBeta:
		return Betacoronavirus, nil
	case "compare", "compare them!":
		return Compare, nil
	case "any", "all":
		return Any, nil
	}
	return 0, fmt.Errorf("%w: unknown genus selector %q", ErrInvalidArgument, s)
}

func (g GenusSelector) String() string {
	switch g {
	case Alphacoronavirus:
		return "Alphacoronavirus"
	case Betacoronavirus:
		return "Betacoronavirus"
	case Compare:
		return "Compare"
	case Any:
		return "Any"
	}
	return fmt.Sprintf("GenusSelector(%d)", int(g))
}

// Label is the text shown in the dashboard dropdown.
func (g GenusSelector) Label() string {
	switch g {
	case Compare:
		return "Compare them!"
	case Any:
		return "All"
	}
	return g.String()
}

func (g GenusSelector) valid() bool { return g >= Alphacoronavirus && g <= Any }

// virusGenus is the lower-cased genus matched by a named selector.
func (g GenusSelector) virusGenus() string {
	switch g {
	case Alphacoronavirus:
		return genusAlpha
	case Betacoronavirus:
		return genusBeta
	}
	return ""
}

func (g GenusSelector) MarshalText() ([]byte, error) {
	if !g.valid() {
		return nil, fmt.Errorf("%w: genus selector %d", ErrInvalidArgument, int(g))
	}
	return []byte(g.String()), nil
}

func (g *GenusSelector) UnmarshalText(b []byte) error {
	v, err := ParseGenusSelector(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// GroupField is the dimension observations are bucketed by.
type GroupField int

const (
	Year GroupField = iota + 1
	Country
	BatGenus
	SampleTissue
)

// GroupFields lists fields in dashboard order.
func GroupFields() []GroupField {
	return []GroupField{Year, Country, BatGenus, SampleTissue}
}

// ParseGroupField is case-insensitive and accepts the dashboard labels
// "Bat Genus" and "Sample Type".
func ParseGroupField(s string) (GroupField, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	switch k {
	case "year":
		return Year, nil
	case "country":
		return Country, nil
	case "bat genus":
		return BatGenus, nil
	case "sample tissue", "sample type":
		return SampleTissue, nil
	}
	return 0, fmt.Errorf("%w: unknown group field %q", ErrInvalidArgument, s)
}

func (f GroupField) String() string {
	switch f {
	case Year:
		return "Year"
	case Country:
		return "Country"
	case BatGenus:
		return "Bat genus"
	case SampleTissue:
		return "Sample tissue"
	}
	return fmt.Sprintf("GroupField(%d)", int(f))
}

// Label is the text shown in the dashboard dropdown.
func (f GroupField) Label() string {
	switch f {
	case BatGenus:
		return "Bat Genus"
	case SampleTissue:
		return "Sample Type"
	}
	return f.String()
}

func (f GroupField) valid() bool { return f >= Year && f <= SampleTissue }

// naMarker is how gota stores NA, NaN and <nil> cells loaded as text.
const naMarker = "NaN"

// missingKey reports blank or NA group values; such rows never form a group.
func missingKey(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == naMarker
}

// pruneSingleGenus reports whether Compare mode drops values seen with only one genus.
func (f GroupField) pruneSingleGenus() bool { return f == Country || f == BatGenus }

func (f GroupField) value(o dataset.Observation) string {
	switch f {
	case Year:
		return o.Year
	case Country:
		return o.Country
	case BatGenus:
		return o.BatGenus
	case SampleTissue:
		return o.SampleTissue
	}
	return ""
}

func (f GroupField) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("%w: group field %d", ErrInvalidArgument, int(f))
	}
	return []byte(f.String()), nil
}

func (f *GroupField) UnmarshalText(b []byte) error {
	v, err := ParseGroupField(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
