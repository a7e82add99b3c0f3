package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Country maps one country identifier to the parameters a probe needs: the
// ISO code handed to the identity switch and the local purchasing currency.
type Country struct {
	Name     string `yaml:"name"`
	Code     string `yaml:"code"`
	Currency string `yaml:"currency"`
}

// Countries is the full country registry. Loaded once at startup and
// read-only afterwards.
type Countries struct {
	Countries []Country `yaml:"countries"`

	index map[string]Country
}

// LoadCountries loads a country registry from the given yaml path.
func LoadCountries(path string) (*Countries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read countries file: %w", err)
	}
	var reg Countries
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse countries file: %w", err)
	}
	if len(reg.Countries) == 0 {
		return nil, fmt.Errorf("countries file %s defines no countries", path)
	}
	reg.buildIndex()
	return &reg, nil
}

// DefaultCountries returns the built-in registry.
func DefaultCountries() *Countries {
	reg := &Countries{Countries: builtinCountries}
	reg.buildIndex()
	return reg
}

func (c *Countries) buildIndex() {
	c.index = make(map[string]Country, len(c.Countries))
	for _, entry := range c.Countries {
		c.index[strings.ToLower(entry.Name)] = entry
	}
}

// Get looks up a country by its identifier, case-insensitively.
func (c *Countries) Get(name string) (Country, bool) {
	entry, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return entry, ok
}

// Names returns every registered identifier, sorted.
func (c *Countries) Names() []string {
	names := make([]string, 0, len(c.Countries))
	for _, entry := range c.Countries {
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	return names
}

var builtinCountries = []Country{
	// Europe
	{Name: "poland", Code: "PL", Currency: "PLN"},
	{Name: "germany", Code: "DE", Currency: "EUR"},
	{Name: "united_kingdom", Code: "GB", Currency: "GBP"},
	{Name: "france", Code: "FR", Currency: "EUR"},
	{Name: "spain", Code: "ES", Currency: "EUR"},
	{Name: "italy", Code: "IT", Currency: "EUR"},
	{Name: "netherlands", Code: "NL", Currency: "EUR"},
	{Name: "belgium", Code: "BE", Currency: "EUR"},
	{Name: "austria", Code: "AT", Currency: "EUR"},
	{Name: "switzerland", Code: "CH", Currency: "CHF"},
	{Name: "sweden", Code: "SE", Currency: "SEK"},
	{Name: "norway", Code: "NO", Currency: "NOK"},
	{Name: "denmark", Code: "DK", Currency: "DKK"},
	{Name: "finland", Code: "FI", Currency: "EUR"},
	{Name: "portugal", Code: "PT", Currency: "EUR"},
	{Name: "greece", Code: "GR", Currency: "EUR"},
	{Name: "czech", Code: "CZ", Currency: "CZK"},
	{Name: "hungary", Code: "HU", Currency: "HUF"},
	{Name: "romania", Code: "RO", Currency: "RON"},
	{Name: "bulgaria", Code: "BG", Currency: "BGN"},
	{Name: "croatia", Code: "HR", Currency: "EUR"},
	{Name: "slovakia", Code: "SK", Currency: "EUR"},
	{Name: "ireland", Code: "IE", Currency: "EUR"},
	{Name: "ukraine", Code: "UA", Currency: "UAH"},
	{Name: "albania", Code: "AL", Currency: "ALL"},
	{Name: "turkey", Code: "TR", Currency: "TRY"},
	// Americas
	{Name: "usa", Code: "US", Currency: "USD"},
	{Name: "canada", Code: "CA", Currency: "CAD"},
	{Name: "mexico", Code: "MX", Currency: "MXN"},
	{Name: "brazil", Code: "BR", Currency: "BRL"},
	{Name: "argentina", Code: "AR", Currency: "ARS"},
	// Asia and Middle East
	{Name: "japan", Code: "JP", Currency: "JPY"},
	{Name: "south_korea", Code: "KR", Currency: "KRW"},
	{Name: "china", Code: "CN", Currency: "CNY"},
	{Name: "india", Code: "IN", Currency: "INR"},
	{Name: "thailand", Code: "TH", Currency: "THB"},
	{Name: "singapore", Code: "SG", Currency: "SGD"},
	{Name: "malaysia", Code: "MY", Currency: "MYR"},
	{Name: "indonesia", Code: "ID", Currency: "IDR"},
	{Name: "vietnam", Code: "VN", Currency: "VND"},
	{Name: "philippines", Code: "PH", Currency: "PHP"},
	{Name: "uae", Code: "AE", Currency: "AED"},
	{Name: "israel", Code: "IL", Currency: "ILS"},
	{Name: "saudi_arabia", Code: "SA", Currency: "SAR"},
	// Oceania and Africa
	{Name: "australia", Code: "AU", Currency: "AUD"},
	{Name: "new_zealand", Code: "NZ", Currency: "NZD"},
	{Name: "south_africa", Code: "ZA", Currency: "ZAR"},
	{Name: "egypt", Code: "EG", Currency: "EGP"},
	{Name: "morocco", Code: "MA", Currency: "MAD"},
}
