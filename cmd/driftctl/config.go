package main

import (
	"encoding/json"
	"fmt"
	"os"

	driftapi "driftlab/pkg/driftlab"
)

// loadRunRequestFromConfig reads a run request from a loose JSON map so
// configs stay forward compatible: unknown keys are ignored and absent keys
// keep their zero value.
func loadRunRequestFromConfig(path string) (driftapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return driftapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return driftapi.RunRequest{}, err
	}

	var req driftapi.RunRequest
	if v, ok := asString(raw["model"]); ok {
		req.Model = v
	}
	if v, ok := asString(raw["batch_id"]); ok {
		req.BatchID = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["runs"]); ok {
		req.Runs = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64(raw["p0"]); ok {
		req.P0 = v
	}
	if v, ok := asFloat64(raw["pa0"]); ok {
		req.PA0 = v
	}
	if v, ok := asFloat64(raw["pb0"]); ok {
		req.PB0 = v
	}
	if v, ok := asFloat64(raw["q0"]); ok {
		req.Q0 = v
	}
	if v, ok := asFloat64(raw["mu"]); ok {
		req.Mu = v
	}
	if v, ok := asFloat64(raw["mu_b"]); ok {
		req.MuB = v
	}
	if v, ok := asFloat64(raw["s"]); ok {
		req.S = v
	}
	if v, ok := asFloat64(raw["linkage"]); ok {
		req.Linkage = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (driftapi.RunRequest, error) {
	if configPath == "" {
		return driftapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return driftapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies only the flags the user set explicitly on top of
// a config-loaded request.
func overrideFromFlags(req *driftapi.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "model":
			req.Model = v.(string)
		case "batch-id":
			req.BatchID = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "runs":
			req.Runs = v.(int)
		case "workers":
			req.Workers = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "p0":
			req.P0 = v.(float64)
		case "pa0":
			req.PA0 = v.(float64)
		case "pb0":
			req.PB0 = v.(float64)
		case "q0":
			req.Q0 = v.(float64)
		case "mu":
			req.Mu = v.(float64)
		case "mu-b":
			req.MuB = v.(float64)
		case "s":
			req.S = v.(float64)
		case "linkage":
			req.Linkage = v.(float64)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
