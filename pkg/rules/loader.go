package rules

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadFile reads and validates a rule file.
func LoadFile(path string) (*RuleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	rf, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rf.Path = path
	return rf, nil
}

// Parse decodes and validates rule file content.
func Parse(raw []byte) (*RuleFile, error) {
	rf := &RuleFile{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := validate.Struct(rf); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	for i := range rf.Rules {
		r := &rf.Rules[i]
		for j := range r.Actions {
			if err := r.Actions[j].check(); err != nil {
				return nil, fmt.Errorf("invalid rules: rule %s: action %d: %w", r.Name, j, err)
			}
		}
	}
	return rf, nil
}

// Rule returns a rule by name.
func (rf *RuleFile) Rule(name string) (*Rule, bool) {
	for i := range rf.Rules {
		if rf.Rules[i].Name == name {
			return &rf.Rules[i], true
		}
	}
	return nil, false
}
