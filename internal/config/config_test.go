package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
promotion:
  currency_precision: 2
order:
  tax_rate_percent: "10"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Promotion.CurrencyPrecision != 2 || cfg.Order.TaxRatePercent != "10" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Promotion.MaxCodesPerRequest != 10 || cfg.Cart.TTLHours != 72 || !cfg.Order.RefundUsageOnCancel {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("PROMO_CART_CURRENCY", "USD")
	cfg, err := LoadFile(writeConfig(t, "cart:\n  currency: EUR\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cart.Currency != "USD" {
		t.Fatalf("env should override file, got %s", cfg.Cart.Currency)
	}
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"precision": "promotion:\n  currency_precision: 9\n",
		"tax":       "order:\n  tax_rate_percent: \"-1\"\n",
		"shipping":  "order:\n  shipping_fee: abc\n",
	}
	for name, body := range cases {
		if _, err := LoadFile(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadFileMissingExplicitPath(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
