package config

import "testing"

func TestDSNFromComponents(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.local",
		Port:     "5433",
		User:     "app",
		Password: "pw",
		DBName:   "classpulse",
		SSLMode:  "require",
	}
	want := "postgres://app:pw@db.local:5433/classpulse?sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDSNPrefersURL(t *testing.T) {
	c := DatabaseConfig{
		URL:  "postgres://elsewhere:5432/other?sslmode=disable",
		Host: "ignored",
	}
	if got := c.DSN(); got != c.URL {
		t.Errorf("DSN() = %q, want the URL as-is", got)
	}
}
