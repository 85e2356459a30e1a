package credentials

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML layout of CREDENTIALS_SEED_FILE:
//
//	tenants:
//	  - tenant: default
//	    staff:
//	      - {username: admin, password: secret, authorities: [ROLE_ADMIN]}
//	    shoppers:
//	      - {username: jane, password: secret, registered: true}
type Seed struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

type SeedTenant struct {
	Tenant   string     `yaml:"tenant"`
	Staff    []SeedUser `yaml:"staff"`
	Shoppers []SeedUser `yaml:"shoppers"`
}

type SeedUser struct {
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Authorities []string `yaml:"authorities"`
	Registered  *bool    `yaml:"registered"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	var s Seed
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("credentials seed %s: %w", path, err)
	}
	return s, nil
}

// Apply hashes the seed passwords and stores the users. schemaOf maps the
// seed's tenant strings to schemas.
func (s Seed) Apply(m *MemoryStore, schemaOf func(tenant string) (string, error), cost int) error {
	for _, t := range s.Tenants {
		schema, err := schemaOf(t.Tenant)
		if err != nil {
			return fmt.Errorf("seed tenant %q: %w", t.Tenant, err)
		}
		for _, u := range t.Staff {
			hash, err := HashPassword(u.Password, cost)
			if err != nil {
				return err
			}
			m.PutStaff(schema, StaffRecord{Username: u.Username, PasswordHash: hash, Authorities: u.Authorities, Active: true})
		}
		for _, u := range t.Shoppers {
			rec := ShopperRecord{Username: u.Username, Authorities: u.Authorities, Registered: true}
			if u.Registered != nil {
				rec.Registered = *u.Registered
			}
			if u.Password != "" {
				hash, err := HashPassword(u.Password, cost)
				if err != nil {
					return err
				}
				rec.PasswordHash = hash
			}
			m.PutShopper(schema, rec)
		}
	}
	return nil
}
