package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"htmsim/internal/htm"
	"htmsim/pkg/htmsim"
)

func TestLoadRunRequestFromConfigLayersRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	payload := map[string]any{
		"scape":       "moving_bar",
		"ticks":       40,
		"seed":        77,
		"interval_ms": 5,
		"keep_inputs": true,
		"horizontal":  true,
		"region": map[string]any{
			"region_width":  5,
			"region_height": 6,
			"cell": map[string]any{
				"activation_threshold": 2,
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.Scape != "moving_bar" || req.Ticks != 40 || req.Seed != 77 || req.Interval != 5*time.Millisecond {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if !req.KeepInputs || !req.Horizontal {
		t.Fatalf("unexpected bool fields: %+v", req)
	}
	if req.Region == nil {
		t.Fatal("expected region config")
	}
	def := htm.DefaultConfig()
	if req.Region.RegionWidth != 5 || req.Region.RegionHeight != 6 || req.Region.Cell.ActivationThreshold != 2 {
		t.Fatalf("region overrides not applied: %+v", *req.Region)
	}
	if req.Region.CellsPerColumn != def.CellsPerColumn || req.Region.Cell.NewSynapseCount != def.Cell.NewSynapseCount {
		t.Fatalf("region defaults not kept: %+v", *req.Region)
	}

	err = overrideFromFlags(&req, map[string]bool{"ticks": true, "region-width": true, "input-radius": true}, map[string]any{
		"ticks":        12,
		"region-width": 7,
		"input-radius": 0.0,
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Ticks != 12 || req.Region.RegionWidth != 7 || req.Region.RegionHeight != 6 || req.Region.InputRadius != def.InputRadius {
		t.Fatalf("unexpected overrides: ticks=%d region=%+v", req.Ticks, *req.Region)
	}
}

func TestLoadRunRequestFromConfigRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadOrDefaultRunRequest(bad); err == nil {
		t.Fatal("expected malformed config error")
	}
	if _, err := loadOrDefaultRunRequest(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected missing config error")
	}
	badRegion := filepath.Join(dir, "region.json")
	if err := os.WriteFile(badRegion, []byte(`{"region":{"region_width":"wide"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunRequestFromConfig(badRegion); err == nil {
		t.Fatal("expected region decode error")
	}
	req, err := loadOrDefaultRunRequest("")
	if err != nil || req.Region != nil || req.Scape != "" {
		t.Fatalf("expected empty request, got %+v %v", req, err)
	}
}

func TestOverrideFromFlagsDefaultsAndValidation(t *testing.T) {
	req := loadEmpty(t)
	if err := overrideFromFlags(&req, map[string]bool{"skip-spatial": true}, map[string]any{"skip-spatial": false}); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Scape != "alternating" || req.Region != nil {
		t.Fatalf("expected default scape and untouched region, got %+v", req)
	}

	req = loadEmpty(t)
	req.Recording = "rec"
	if err := overrideFromFlags(&req, nil, nil); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Scape != "" {
		t.Fatalf("recording runs should not get a default scape: %+v", req)
	}

	req = loadEmpty(t)
	if err := overrideFromFlags(&req, map[string]bool{"ticks": true}, map[string]any{"ticks": -2}); err == nil {
		t.Fatal("expected negative ticks error")
	}
}

func loadEmpty(t *testing.T) htmsim.RunRequest {
	t.Helper()
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	return req
}
