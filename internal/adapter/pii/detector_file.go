package pii

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// detectorFile is the on-disk format read by LoadDetectorFile:
//
//	replace_defaults: false
//	detectors:
//	  - name: customer_id
//	    pattern: '\b\d{5}\b'
type detectorFile struct {
	ReplaceDefaults bool `yaml:"replace_defaults"`
	Detectors       []struct {
		Name    string `yaml:"name"`
		Pattern string `yaml:"pattern"`
	} `yaml:"detectors"`
}

// LoadDetectorFile reads extra detectors from a YAML file. They are appended
// after the defaults, so built-in categories keep precedence, unless the file
// sets replace_defaults.
func LoadDetectorFile(path string) ([]Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector file %s: %w", path, err)
	}

	var df detectorFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&df); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse detector file %s: %w", path, err)
	}

	var detectors []Detector
	if !df.ReplaceDefaults {
		detectors = DefaultDetectors()
	}
	for _, d := range df.Detectors {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("detector %q in %s: %w", d.Name, path, err)
		}
		detectors = append(detectors, Detector{Name: d.Name, Pattern: re})
	}
	return detectors, nil
}

// BuildRegistry returns the default registry, or one built from path when it
// is set.
func BuildRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewDefaultRegistry(), nil
	}
	detectors, err := LoadDetectorFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(detectors...)
}
