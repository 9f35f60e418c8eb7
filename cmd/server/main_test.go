package main

import (
	"testing"

	"tokoagen/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	if _, err := validateSecurityConfig(config.Config{AuthSecret: "short", Timezone: "Asia/Jakarta"}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	if _, err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, Timezone: "Mars/Olympus"}); err == nil {
		t.Fatalf("expected unknown timezone to be rejected")
	}
	if _, err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, AllowedOrigin: "*", DatabaseURL: "postgres://x"}); err == nil {
		t.Fatalf("expected wildcard origin to be rejected in production")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	loc, err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, Timezone: "Asia/Jakarta"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
	if loc.String() != "Asia/Jakarta" {
		t.Fatalf("expected Asia/Jakarta, got %s", loc)
	}
}
