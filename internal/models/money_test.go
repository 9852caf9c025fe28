package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyJSON(t *testing.T) {
	out, err := json.Marshal(NewMoneyFromDecimal(decimal.RequireFromString("12.345")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"12.35"` {
		t.Fatalf("unexpected json %s", out)
	}

	cases := map[string]string{
		`"9.5"`: "9.50",
		`7.125`: "7.13",
		`null`:  "0.00",
	}
	for raw, want := range cases {
		var m Money
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if m.String() != want {
			t.Fatalf("unmarshal %s: got %s want %s", raw, m.String(), want)
		}
	}

	var bad Money
	if err := json.Unmarshal([]byte(`"abc"`), &bad); err == nil {
		t.Fatalf("expected error for non-numeric money")
	}
}

func TestMoneyScanRounds(t *testing.T) {
	var m Money
	if err := m.Scan("3.14159"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m.String() != "3.14" {
		t.Fatalf("unexpected scanned value %s", m.String())
	}
}

func TestParseSQLLogLevelDefaultsToWarn(t *testing.T) {
	if ParseSQLLogLevel("bogus") != ParseSQLLogLevel("warn") {
		t.Fatalf("unknown level should fall back to warn")
	}
	if ParseSQLLogLevel(" INFO ") == ParseSQLLogLevel("warn") {
		t.Fatalf("info should be parsed case-insensitively")
	}
}
