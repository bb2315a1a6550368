package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	driftapi "driftlab/pkg/driftlab"
)

// runProfile is one named parameter set from a profiles YAML file. A profile
// fixes the model and its parameters wholesale; shape knobs (population,
// generations, runs, workers, seed) apply only when set, so flags and config
// values survive for the ones a profile leaves out.
type runProfile struct {
	Name        string        `yaml:"name"`
	Model       string        `yaml:"model"`
	Population  int           `yaml:"population"`
	Generations int           `yaml:"generations"`
	Runs        int           `yaml:"runs"`
	Workers     int           `yaml:"workers"`
	Seed        int64         `yaml:"seed"`
	Params      profileParams `yaml:"params"`
}

type profileParams struct {
	P0      float64 `yaml:"p0"`
	PA0     float64 `yaml:"pa0"`
	PB0     float64 `yaml:"pb0"`
	Q0      float64 `yaml:"q0"`
	Mu      float64 `yaml:"mu"`
	MuB     float64 `yaml:"mu_b"`
	S       float64 `yaml:"s"`
	Linkage float64 `yaml:"linkage"`
}

type profilesFile struct {
	Profiles []runProfile `yaml:"profiles"`
}

func loadProfiles(path string) ([]runProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles defined in %s", path)
	}
	seen := make(map[string]bool, len(file.Profiles))
	for _, profile := range file.Profiles {
		if profile.Name == "" {
			return nil, fmt.Errorf("profile without a name in %s", path)
		}
		if profile.Model == "" {
			return nil, fmt.Errorf("profile %s has no model", profile.Name)
		}
		if seen[profile.Name] {
			return nil, fmt.Errorf("duplicate profile name: %s", profile.Name)
		}
		seen[profile.Name] = true
	}
	return file.Profiles, nil
}

func findProfile(profiles []runProfile, name string) (runProfile, error) {
	for _, profile := range profiles {
		if profile.Name == name {
			return profile, nil
		}
	}
	return runProfile{}, fmt.Errorf("profile not found: %s", name)
}

func applyProfile(req *driftapi.RunRequest, profile runProfile) {
	req.Model = profile.Model
	req.P0 = profile.Params.P0
	req.PA0 = profile.Params.PA0
	req.PB0 = profile.Params.PB0
	req.Q0 = profile.Params.Q0
	req.Mu = profile.Params.Mu
	req.MuB = profile.Params.MuB
	req.S = profile.Params.S
	req.Linkage = profile.Params.Linkage

	if profile.Population > 0 {
		req.Population = profile.Population
	}
	if profile.Generations > 0 {
		req.Generations = profile.Generations
	}
	if profile.Runs > 0 {
		req.Runs = profile.Runs
	}
	if profile.Workers > 0 {
		req.Workers = profile.Workers
	}
	if profile.Seed != 0 {
		req.Seed = profile.Seed
	}
}
