package resources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the --resources-file flag: three maps from
// a logical pool name to a connection string. kv entries are redis URLs
// (redis://host:port/db); sql_a entries are Postgres DSNs consumed by pool
// kind "A"; sql_b entries are MySQL DSNs (go-sql-driver/mysql format)
// consumed by pool kind "B".
type Config struct {
	KV   map[string]string `yaml:"kv"`
	SQLA map[string]string `yaml:"sql_a"`
	SQLB map[string]string `yaml:"sql_b"`
}

// LoadConfig reads and parses a resources file. A missing path is not an
// error: it yields an empty Config, since the registry is optional (a
// gateway with plugins that never call agw_kv_execute/agw_sql_query needs
// no external resources at all).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resources: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("resources: parse %s: %w", path, err)
	}
	return &cfg, nil
}
