package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/finwise/dataguard/internal/flagx"
)

// JsonConfig is the DTO for the optional JSON config file. Durations are
// expressed in minutes so the file stays plain JSON.
type JsonConfig struct {
	DatabaseDSN          string `json:"database_dsn"`
	RootPrincipal        string `json:"root_principal"`
	SecretKey            string `json:"secret_key"`
	TokenValidityMinutes int    `json:"token_validity_minutes"`
	BindFieldAAD         *bool  `json:"bind_field_aad"`
	S3RootUser           string `json:"s3_root_user"`
	S3RootPassword       string `json:"s3_root_password"`
	S3Bucket             string `json:"s3_bucket"`
	S3Region             string `json:"s3_region"`
	S3BaseEndpoint       string `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config, when given.
// A missing or unreadable file is ignored; flags can still fill the gaps.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RootPrincipal != "" {
		cfg.RootPrincipal = jc.RootPrincipal
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.TokenValidityMinutes > 0 {
		cfg.TokenValidityDuration = time.Duration(jc.TokenValidityMinutes) * time.Minute
	}
	if jc.BindFieldAAD != nil {
		cfg.BindFieldAAD = *jc.BindFieldAAD
	}
	if jc.S3RootUser != "" {
		cfg.S3RootUser = jc.S3RootUser
	}
	if jc.S3RootPassword != "" {
		cfg.S3RootPassword = jc.S3RootPassword
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
}
