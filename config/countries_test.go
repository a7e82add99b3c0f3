package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCountries(t *testing.T) {
	reg := DefaultCountries()

	cases := []struct {
		name     string
		code     string
		currency string
	}{
		{"poland", "PL", "PLN"},
		{"sweden", "SE", "SEK"},
		{"czech", "CZ", "CZK"},
		{"usa", "US", "USD"},
		{"japan", "JP", "JPY"},
	}
	for _, tc := range cases {
		country, ok := reg.Get(tc.name)
		if !ok {
			t.Errorf("%s missing from registry", tc.name)
			continue
		}
		if country.Code != tc.code || country.Currency != tc.currency {
			t.Errorf("%s = %s/%s, want %s/%s", tc.name, country.Code, country.Currency, tc.code, tc.currency)
		}
	}
}

func TestCountriesGetCaseInsensitive(t *testing.T) {
	reg := DefaultCountries()
	for _, name := range []string{"Poland", "POLAND", " poland "} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("Get(%q) failed", name)
		}
	}
	if _, ok := reg.Get("atlantis"); ok {
		t.Error("unknown country resolved")
	}
}

func TestLoadCountries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yml")
	content := `
countries:
  - name: poland
    code: PL
    currency: PLN
  - name: iceland
    code: IS
    currency: ISK
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadCountries(path)
	if err != nil {
		t.Fatalf("LoadCountries: %v", err)
	}
	country, ok := reg.Get("iceland")
	if !ok {
		t.Fatal("iceland missing")
	}
	if country.Code != "IS" || country.Currency != "ISK" {
		t.Errorf("iceland = %s/%s", country.Code, country.Currency)
	}
	if len(reg.Names()) != 2 {
		t.Errorf("names = %v", reg.Names())
	}
}

func TestLoadCountriesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yml")
	if err := os.WriteFile(path, []byte("countries: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCountries(path); err == nil {
		t.Fatal("expected error for empty country table")
	}
}
