package types

// Spec is a group of tests derived from one documentation source.
type Spec struct {
	ID          string          `yaml:"id" json:"id"`
	File        string          `yaml:"file,omitempty" json:"file,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Contexts    []Context       `yaml:"contexts,omitempty" json:"contexts,omitempty"`
	APIs        []APIDefinition `yaml:"apis,omitempty" json:"apis,omitempty"`
	Tests       []Test          `yaml:"tests" json:"tests"`
}

type Test struct {
	ID          string    `yaml:"id" json:"id"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Contexts    []Context `yaml:"contexts,omitempty" json:"contexts,omitempty"`
	Steps       []Step    `yaml:"steps" json:"steps"`
}

// API returns the definition called name, looking at the spec only.
func (s *Spec) API(name string) (APIDefinition, bool) {
	if s == nil {
		return APIDefinition{}, false
	}
	for _, api := range s.APIs {
		if api.Name == name {
			return api, true
		}
	}
	return APIDefinition{}, false
}
