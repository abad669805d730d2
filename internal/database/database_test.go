package database

import (
	"testing"

	"storefront/internal/config"
)

func TestConnStringPrefersURL(t *testing.T) {
	cfg := config.DatabaseConfig{
		URL:      "postgres://shop:pw@db:5433/storefront",
		Host:     "ignored",
		Port:     "5432",
		User:     "ignored",
		Password: "ignored",
		Database: "ignored",
		Schema:   "public",
	}

	if got := connString(cfg); got != cfg.URL {
		t.Errorf("Expected URL to be used verbatim, got %q", got)
	}
}

func TestConnStringComposesDiscreteFields(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "shop",
		Password: "pw",
		Database: "storefront",
		Schema:   "public",
	}

	expected := "postgres://shop:pw@localhost:5432/storefront?sslmode=disable&search_path=public"
	if got := connString(cfg); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestNewReturnsErrorForMalformedConnString(t *testing.T) {
	_, err := New(config.DatabaseConfig{
		URL: "postgres://shop:pw@localhost:notaport/storefront",
	})
	if err == nil {
		t.Fatal("Expected an error for a malformed connection string")
	}
}
