package pii

import "strings"

// Anonymizer replaces every detected PII span in a line with its mask token.
type Anonymizer struct {
	registry *Registry
}

// NewAnonymizer creates an Anonymizer backed by registry.
func NewAnonymizer(registry *Registry) *Anonymizer {
	return &Anonymizer{registry: registry}
}

// Anonymize returns line with all matches masked. Lines without matches are
// returned unchanged.
func (a *Anonymizer) Anonymize(line string) string {
	out, _ := a.Apply(line)
	return out
}

// Apply is Anonymize that also reports what was masked.
func (a *Anonymizer) Apply(line string) (string, []Match) {
	matches := a.registry.Detect(line)
	if len(matches) == 0 {
		return line, nil
	}

	var b strings.Builder
	b.Grow(len(line) + len(matches)*(DigestLength+8))
	last := 0
	for _, m := range matches {
		b.WriteString(line[last:m.Start])
		b.WriteString(Mask(m.Label, m.Text))
		last = m.End
	}
	b.WriteString(line[last:])
	return b.String(), matches
}
