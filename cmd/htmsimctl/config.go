package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"htmsim/internal/htm"
	"htmsim/pkg/htmsim"
)

// loadRunRequestFromConfig reads a run config. The optional "region" object
// uses htm.Config field names and is layered over the default region.
func loadRunRequestFromConfig(path string) (htmsim.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return htmsim.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return htmsim.RunRequest{}, err
	}

	var req htmsim.RunRequest
	if v, ok := asString(raw["scape"]); ok {
		req.Scape = v
	}
	if v, ok := asString(raw["recording"]); ok {
		req.Recording = v
	}
	if v, ok := asString(raw["sequence_file"]); ok {
		req.SequenceFile = v
	}
	if v, ok := asInt(raw["ticks"]); ok {
		req.Ticks = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["interval_ms"]); ok {
		req.Interval = time.Duration(v) * time.Millisecond
	}
	if v, ok := asBool(raw["keep_inputs"]); ok {
		req.KeepInputs = v
	}
	if v, ok := asFloat64(raw["density"]); ok {
		req.Density = v
	}
	if v, ok := asInt(raw["blocks"]); ok {
		req.Blocks = v
	}
	if v, ok := asBool(raw["horizontal"]); ok {
		req.Horizontal = v
	}

	if region, ok := raw["region"].(map[string]any); ok {
		encoded, err := json.Marshal(region)
		if err != nil {
			return htmsim.RunRequest{}, err
		}
		cfg := htm.DefaultConfig()
		if err := json.Unmarshal(encoded, &cfg); err != nil {
			return htmsim.RunRequest{}, fmt.Errorf("region: %w", err)
		}
		req.Region = &cfg
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
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

// overrideFromFlags applies the flags in set. Region flags left at zero keep
// the configured value.
func overrideFromFlags(req *htmsim.RunRequest, set map[string]bool, flagValue map[string]any) error {
	region := func() *htm.Config {
		if req.Region == nil {
			cfg := htm.DefaultConfig()
			req.Region = &cfg
		}
		return req.Region
	}
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "scape":
			req.Scape = v.(string)
		case "recording":
			req.Recording = v.(string)
		case "sequence-file":
			req.SequenceFile = v.(string)
		case "ticks":
			req.Ticks = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "interval-ms":
			req.Interval = time.Duration(v.(int)) * time.Millisecond
		case "keep-inputs":
			req.KeepInputs = v.(bool)
		case "density":
			req.Density = v.(float64)
		case "blocks":
			req.Blocks = v.(int)
		case "horizontal":
			req.Horizontal = v.(bool)
		case "region-width":
			if n := v.(int); n > 0 {
				region().RegionWidth = n
			}
		case "region-height":
			if n := v.(int); n > 0 {
				region().RegionHeight = n
			}
		case "input-width":
			if n := v.(int); n > 0 {
				region().InputWidth = n
			}
		case "input-height":
			if n := v.(int); n > 0 {
				region().InputHeight = n
			}
		case "input-radius":
			if r := v.(float64); r > 0 {
				region().InputRadius = r
			}
		case "cells-per-column":
			if n := v.(int); n > 0 {
				region().CellsPerColumn = n
			}
		case "skip-spatial":
			if v.(bool) {
				region().SkipSpatial = true
			}
		}
	}
	if req.Ticks < 0 {
		return fmt.Errorf("ticks must be >= 0, got %d", req.Ticks)
	}
	if req.Interval < 0 {
		return fmt.Errorf("interval must be >= 0, got %s", req.Interval)
	}
	if req.Scape == "" && req.Recording == "" && req.SequenceFile == "" {
		req.Scape = "alternating"
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (htmsim.RunRequest, error) {
	if configPath == "" {
		return htmsim.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return htmsim.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
