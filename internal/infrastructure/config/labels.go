package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/service"
)

// LabelsFile is the YAML document referenced by DISEASE_LABELS_FILE:
//
//	labels:
//	  - Diabetes
//	  - Hypertension
//	placeholders:
//	  - "No description available"
type LabelsFile struct {
	Labels       []string `yaml:"labels"`
	Placeholders []string `yaml:"placeholders"`
}

// Vocabulary is the resolved label table and description placeholders.
type Vocabulary struct {
	Labels       *service.LabelTable
	Placeholders []string
}

// LoadVocabulary returns the built-in vocabulary, overridden by the YAML file
// at path when one is given and by explicit placeholders from the
// environment.
func LoadVocabulary(path string, envPlaceholders []string) (Vocabulary, error) {
	v := Vocabulary{
		Labels:       service.DefaultLabelTable(),
		Placeholders: service.DefaultDescriptionPlaceholders,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Vocabulary{}, fmt.Errorf("failed to read labels file: %w", err)
		}
		parsed, err := ParseLabelsFile(data)
		if err != nil {
			return Vocabulary{}, fmt.Errorf("failed to parse labels file %s: %w", path, err)
		}
		if len(parsed.Labels) > 0 {
			table, err := service.NewLabelTable(parsed.Labels)
			if err != nil {
				return Vocabulary{}, fmt.Errorf("invalid labels in %s: %w", path, err)
			}
			v.Labels = table
		}
		if len(parsed.Placeholders) > 0 {
			v.Placeholders = withEmpty(parsed.Placeholders)
		}
	}

	if len(envPlaceholders) > 0 {
		v.Placeholders = withEmpty(envPlaceholders)
	}
	return v, nil
}

// ParseLabelsFile decodes a labels document. Unknown keys are rejected.
func ParseLabelsFile(data []byte) (LabelsFile, error) {
	var f LabelsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return LabelsFile{}, err
	}
	return f, nil
}

// withEmpty makes sure a blank description always counts as missing.
func withEmpty(placeholders []string) []string {
	for _, p := range placeholders {
		if p == "" {
			return placeholders
		}
	}
	return append([]string{""}, placeholders...)
}
