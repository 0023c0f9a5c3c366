package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Routing.Provider != "osrm" {
		t.Errorf("expected osrm provider, got %q", cfg.Routing.Provider)
	}
	if cfg.Routing.Timeout != 5*time.Second {
		t.Errorf("expected 5s routing timeout, got %v", cfg.Routing.Timeout)
	}
	if cfg.Routing.Debounce != 800*time.Millisecond {
		t.Errorf("expected 800ms debounce, got %v", cfg.Routing.Debounce)
	}
	if cfg.Tracking.NoiseFloorKm != 0.001 {
		t.Errorf("expected noise floor 0.001, got %v", cfg.Tracking.NoiseFloorKm)
	}
	if cfg.Tracking.PersistInterval != 15*time.Second {
		t.Errorf("expected 15s persist interval, got %v", cfg.Tracking.PersistInterval)
	}
	if cfg.Tracking.PositionIdleTTL != 10*time.Minute {
		t.Errorf("expected 10m position idle ttl, got %v", cfg.Tracking.PositionIdleTTL)
	}
	if cfg.Pricing.CommissionRate != 0.10 {
		t.Errorf("expected commission 0.10, got %v", cfg.Pricing.CommissionRate)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROUTING_PROVIDER", "Google")
	t.Setenv("ROUTING_DEBOUNCE", "1s")
	t.Setenv("TRACKING_MAX_SPEED_KMH", "90.5")
	t.Setenv("VEHICLE_MULTIPLIERS", `{"premium":1.5,"moto":0.8}`)
	t.Setenv("MQTT_ENABLED", "true")

	cfg := Load()

	if cfg.Routing.Provider != "google" {
		t.Errorf("expected google provider, got %q", cfg.Routing.Provider)
	}
	if cfg.Routing.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Routing.Debounce)
	}
	if cfg.Tracking.MaxSpeedKmh != 90.5 {
		t.Errorf("expected 90.5, got %v", cfg.Tracking.MaxSpeedKmh)
	}
	if cfg.Pricing.VehicleMultipliers["premium"] != 1.5 || cfg.Pricing.VehicleMultipliers["moto"] != 0.8 {
		t.Errorf("unexpected vehicle multipliers %v", cfg.Pricing.VehicleMultipliers)
	}
	if !cfg.MQTT.Enabled {
		t.Error("expected MQTT enabled")
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("ROUTING_TIMEOUT", "soon")
	t.Setenv("COMMISSION_RATE", "ten")
	t.Setenv("VEHICLE_MULTIPLIERS", "premium=1.5")

	cfg := Load()

	if cfg.Routing.Timeout != 5*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Routing.Timeout)
	}
	if cfg.Pricing.CommissionRate != 0.10 {
		t.Errorf("expected default commission, got %v", cfg.Pricing.CommissionRate)
	}
	if len(cfg.Pricing.VehicleMultipliers) != 0 {
		t.Errorf("expected empty multipliers, got %v", cfg.Pricing.VehicleMultipliers)
	}
}
