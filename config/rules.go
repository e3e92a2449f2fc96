package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/qbitprune/filter"
	"github.com/s0up4200/qbitprune/retention"
)

// StringList accepts either a single string or a list of strings
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*s = StringList{one}
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = many
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
	return nil
}

// RuleSpec is a single rule as written in the rules file. Times are in days.
type RuleSpec struct {
	Category    StringList `yaml:"category"`
	Tracker     StringList `yaml:"tracker"`
	MinSeedTime *float64   `yaml:"min_seed_time"`
	MaxSeedTime *float64   `yaml:"max_seed_time"`
	MinInactive *float64   `yaml:"min_inactive"`
	MaxInactive *float64   `yaml:"max_inactive"`
	CanStopAt1  bool       `yaml:"can_stop_at_1"`
	Filter      string     `yaml:"filter"`
}

// RulesFile mirrors the rules file. Every top-level key is required.
type RulesFile struct {
	Categories *[]RuleSpec `yaml:"categories"`
	Trackers   *[]RuleSpec `yaml:"trackers"`
	Folders    *[]string   `yaml:"folders"`
}

// Rules are the retention rules and download folders ready for a run
type Rules struct {
	Rules   []retention.Rule
	Folders []string
}

// LoadRules reads and validates the rules file at path
func LoadRules(fs afero.Fs, path string, compiler *filter.Compiler) (*Rules, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rules file: %w", ErrInvalidConfig, err)
	}

	rules, err := ParseRules(data, compiler)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a rules document. Unknown keys are rejected.
func ParseRules(data []byte, compiler *filter.Compiler) (*Rules, error) {
	if compiler == nil {
		compiler = filter.NewCompiler()
	}

	var file RulesFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: malformed rules file: %w", ErrInvalidConfig, err)
	}

	switch {
	case file.Categories == nil:
		return nil, fmt.Errorf("%w: rules file is missing the categories key", ErrInvalidConfig)
	case file.Trackers == nil:
		return nil, fmt.Errorf("%w: rules file is missing the trackers key", ErrInvalidConfig)
	case file.Folders == nil:
		return nil, fmt.Errorf("%w: rules file is missing the folders key", ErrInvalidConfig)
	}

	out := &Rules{}
	for _, folder := range *file.Folders {
		if strings.TrimSpace(folder) == "" {
			return nil, fmt.Errorf("%w: folders must not contain empty paths", ErrInvalidConfig)
		}
		out.Folders = append(out.Folders, expandPath(folder))
	}
	if len(out.Folders) == 0 {
		return nil, fmt.Errorf("%w: at least one folder is required", ErrInvalidConfig)
	}

	for i, spec := range *file.Categories {
		rule, err := spec.toRule(retention.SelectCategory, spec.Category, compiler)
		if err != nil {
			return nil, fmt.Errorf("%w: categories[%d]: %w", ErrInvalidConfig, i, err)
		}
		out.Rules = append(out.Rules, rule)
	}

	for i, spec := range *file.Trackers {
		rule, err := spec.toRule(retention.SelectTracker, spec.Tracker, compiler)
		if err != nil {
			return nil, fmt.Errorf("%w: trackers[%d]: %w", ErrInvalidConfig, i, err)
		}
		out.Rules = append(out.Rules, rule)
	}

	return out, nil
}

func (s RuleSpec) toRule(kind retention.SelectorKind, values StringList, compiler *filter.Compiler) (retention.Rule, error) {
	if len(values) == 0 {
		return retention.Rule{}, fmt.Errorf("%s is required", kind)
	}
	switch {
	case kind == retention.SelectCategory && len(s.Tracker) > 0:
		return retention.Rule{}, errors.New("category rules must not set tracker")
	case kind == retention.SelectTracker && len(s.Category) > 0:
		return retention.Rule{}, errors.New("tracker rules must not set category")
	}

	rule := retention.Rule{
		Kind:        kind,
		StopAtRatio: s.CanStopAt1,
	}
	for _, v := range values {
		if kind == retention.SelectTracker {
			v = strings.ToLower(v)
		}
		rule.Values = append(rule.Values, v)
	}

	limits := []struct {
		name  string
		value *float64
		dst   *time.Duration
	}{
		{"min_seed_time", s.MinSeedTime, &rule.MinSeedTime},
		{"max_seed_time", s.MaxSeedTime, &rule.MaxSeedTime},
		{"min_inactive", s.MinInactive, &rule.MinInactive},
		{"max_inactive", s.MaxInactive, &rule.MaxInactive},
	}
	for _, l := range limits {
		if l.value == nil {
			return retention.Rule{}, fmt.Errorf("%s is required", l.name)
		}
		if math.IsNaN(*l.value) {
			return retention.Rule{}, fmt.Errorf("%s must be a number", l.name)
		}
		if *l.value < 0 {
			return retention.Rule{}, fmt.Errorf("%s must not be negative", l.name)
		}
		*l.dst = retention.Days(*l.value)
	}

	if strings.TrimSpace(s.Filter) != "" {
		f, err := compiler.Compile(s.Filter)
		if err != nil {
			return retention.Rule{}, err
		}
		rule.Filter = f
	}

	return rule, nil
}
