package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScopeCatalog names the scopes every synthesized client is granted.
type ScopeCatalog struct {
	Staff              string   `yaml:"staff"`
	Customer           string   `yaml:"customer"`
	RegisteredCustomer string   `yaml:"registered_customer"`
	Extra              []string `yaml:"extra"`
}

// DefaultScopeCatalog is used when no SCOPE_CATALOG_FILE is configured.
func DefaultScopeCatalog() ScopeCatalog {
	return ScopeCatalog{
		Staff:              "admin",
		Customer:           "customer",
		RegisteredCustomer: "customer_registered",
	}
}

// All returns every scope in the catalog, family scopes first.
func (c ScopeCatalog) All() []string {
	out := []string{c.Staff, c.Customer, c.RegisteredCustomer}
	return append(out, c.Extra...)
}

// LoadScopeCatalog reads a YAML catalog; missing keys keep their defaults.
func LoadScopeCatalog(path string) (ScopeCatalog, error) {
	cat := DefaultScopeCatalog()
	if path == "" {
		return cat, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cat, err
	}
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return cat, fmt.Errorf("scope catalog %s: %w", path, err)
	}
	if cat.Staff == "" || cat.Customer == "" || cat.RegisteredCustomer == "" {
		return cat, fmt.Errorf("scope catalog %s: staff, customer and registered_customer are required", path)
	}
	if cat.Staff == cat.Customer || cat.Staff == cat.RegisteredCustomer || cat.Customer == cat.RegisteredCustomer {
		return cat, fmt.Errorf("scope catalog %s: family scopes must be distinct", path)
	}
	return cat, nil
}
