package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/voybot/internal/format"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/recipes"
	"github.com/dgallion1/voybot/internal/section"
)

// File is the optional YAML policy file named by VOYBOT_CONFIG.
//
//	styles:
//	  QuickbarCity: quickbar
//	spacer_exempt: [Da sapere]
//	recipes:
//	  mapcode-quickbar:
//	    params: {old: gb}
//	    selector: {category: Quickbar con codice mappa diverso da Wikidata, recursive: true}
type File struct {
	// Styles add to or override the default template layout table.
	Styles       map[string]string         `yaml:"styles"`
	SpacerExempt []string                  `yaml:"spacer_exempt"`
	Policies     map[string]section.Policy `yaml:"policies"`
	Recipes      map[string]RecipeFile     `yaml:"recipes"`
}

// RecipeFile overrides one recipe.
type RecipeFile struct {
	Params   map[string]string  `yaml:"params"`
	Selector *pipeline.Selector `yaml:"selector"`
}

// LoadFile reads a policy file. An empty path yields an empty File.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes and validates policy YAML.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for name, st := range f.Styles {
		if _, err := format.ParseStyle(st); err != nil {
			return nil, fmt.Errorf("style of %s: %w", name, err)
		}
	}
	for name, p := range f.Policies {
		if len(p.Sections) == 0 {
			return nil, fmt.Errorf("layout %s has no sections", name)
		}
	}
	return &f, nil
}

// RecipeOptions turns the file into recipe options on top of the built-in
// defaults.
func (f *File) RecipeOptions() recipes.Options {
	pol := format.DefaultPolicy()
	for name, st := range f.Styles {
		s, _ := format.ParseStyle(st)
		pol.Set(name, s)
	}
	exempt := format.DefaultSpacerExempt
	if f.SpacerExempt != nil {
		exempt = f.SpacerExempt
	}

	policies := make(map[string]section.Policy, len(section.Policies)+len(f.Policies))
	for name, p := range section.Policies {
		policies[name] = p
	}
	for name, p := range f.Policies {
		if p.Name == "" {
			p.Name = name
		}
		policies[name] = p
	}

	o := recipes.Options{
		Formatter: &format.Formatter{Policy: pol, SpacerExempt: exempt},
		Policies:  policies,
		Params:    map[string]pipeline.Params{},
		Selectors: map[string]pipeline.Selector{},
	}
	for name, rc := range f.Recipes {
		if len(rc.Params) > 0 {
			o.Params[name] = pipeline.Params(rc.Params)
		}
		if rc.Selector != nil {
			o.Selectors[name] = *rc.Selector
		}
	}
	return o
}
