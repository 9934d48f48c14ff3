package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Persona is an interviewer identity preset. The greeting handler derives a
// persona from the job description when it can; deployments can also pin a
// roster of preset personas in personas.yaml.
type Persona struct {
	Name    string `yaml:"name" json:"name"`
	Company string `yaml:"company" json:"company"`
	Role    string `yaml:"role" json:"role"`
	Style   string `yaml:"style,omitempty" json:"style,omitempty"`
}

const personasFileName = "personas.yaml"

// DefaultPersona is used when generation fails and no roster is configured.
func DefaultPersona() Persona {
	return Persona{
		Name:    "Alex",
		Company: "the hiring team",
		Role:    "technical interviewer",
	}
}

// LoadPersonas reads the optional persona roster from dir. A missing file
// is not an error; it returns an empty roster.
func LoadPersonas(dir string) ([]Persona, error) {
	path := filepath.Join(dir, configDirName, personasFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}

	var roster struct {
		Personas []Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse personas file: %w", err)
	}

	for i := range roster.Personas {
		if roster.Personas[i].Name == "" {
			return nil, fmt.Errorf("persona %d is missing a name", i)
		}
	}
	return roster.Personas, nil
}
