package pii

import (
	"fmt"
	"regexp"
	"sort"
)

// Detector is a named pattern for one PII category.
type Detector struct {
	Name    string
	Pattern *regexp.Regexp
}

// Match is one detected span in the scanned text.
type Match struct {
	Label string
	Start int
	End   int
	Text  string
}

var (
	detectorNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

	// maskTokenRe matches tokens produced by Mask so they are never masked again.
	maskTokenRe = regexp.MustCompile(`<[A-Za-z0-9_.-]+:[0-9a-f]{12}>`)
)

// DefaultDetectors returns the built-in detectors in precedence order.
// phone runs before dni so a 9-digit phone number is never reported as an
// 8-digit ID. dni matches exactly 8 digits; shorter numbers such as
// customer_id=54321 are left alone.
func DefaultDetectors() []Detector {
	return []Detector{
		{Name: "email", Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
		{Name: "phone", Pattern: regexp.MustCompile(`\b9\d{8}\b`)},
		{Name: "dni", Pattern: regexp.MustCompile(`\b\d{8}\b`)},
		{Name: "ip", Pattern: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`)},
	}
}

// Registry holds an ordered, immutable set of detectors.
type Registry struct {
	detectors []Detector
}

// NewRegistry validates detectors and fixes their order.
func NewRegistry(detectors ...Detector) (*Registry, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("registry needs at least one detector")
	}

	seen := make(map[string]struct{}, len(detectors))
	owned := make([]Detector, 0, len(detectors))
	for i, d := range detectors {
		if !detectorNameRe.MatchString(d.Name) {
			return nil, fmt.Errorf("detector %d: invalid name %q", i, d.Name)
		}
		if d.Pattern == nil {
			return nil, fmt.Errorf("detector %q: nil pattern", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("detector %q: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}
		owned = append(owned, d)
	}
	return &Registry{detectors: owned}, nil
}

// NewDefaultRegistry returns a registry over DefaultDetectors.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDetectors()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns detector names in precedence order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		names[i] = d.Name
	}
	return names
}

// Detect scans text with every detector and returns the accepted matches
// sorted by position. All detectors see the original text. A detector earlier
// in the registry claims its spans first; a later candidate overlapping a
// claimed span is dropped. Existing mask tokens are claimed up front.
func (r *Registry) Detect(text string) []Match {
	var claimed [][]int
	claimed = append(claimed, maskTokenRe.FindAllStringIndex(text, -1)...)

	var matches []Match
	for _, d := range r.detectors {
		for _, loc := range d.Pattern.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] || overlapsAny(claimed, loc) {
				continue
			}
			claimed = append(claimed, loc)
			matches = append(matches, Match{
				Label: d.Name,
				Start: loc[0],
				End:   loc[1],
				Text:  text[loc[0]:loc[1]],
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

func overlapsAny(spans [][]int, loc []int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && s[0] < loc[1] {
			return true
		}
	}
	return false
}
