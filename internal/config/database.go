// internal/config/database.go
package config

import (
	"fmt"
	"strings"
)

const postgresApplicationName = "storyline-backend"

// DSN builds the Postgres connection string. Empty settings are left out so
// libpq defaults and PG* environment variables still apply.
func (d DatabaseConfig) DSN() string {
	parts := []string{}
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", key, value))
		}
	}

	add("host", d.Host)
	add("port", d.Port)
	add("user", d.User)
	add("password", d.Password)
	add("dbname", d.Database)
	add("sslmode", d.SSLMode)
	add("application_name", postgresApplicationName)
	return strings.Join(parts, " ")
}

// Driver names the gorm dialect Initialize will open.
func (d DatabaseConfig) Driver() string {
	if d.Enabled {
		return "postgres"
	}
	return "sqlite"
}
