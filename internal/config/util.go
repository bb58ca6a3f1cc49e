package config

import (
	"encoding/json"
	"os"
)

// toMap round-trips cfg through JSON to get a map viper can flatten into
// dotted keys, reusing the same mapstructure/json tags used for loading.
func toMap(cfg *Config) map[string]interface{} {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return m
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
