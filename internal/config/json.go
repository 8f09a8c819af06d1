package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/leafsync/internal/flagx"
	"github.com/dmitrijs2005/leafsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be written either as strings like "3s" or
// as integer nanoseconds. After parsing, values are copied into the runtime
// Config.
type JsonConfig struct {
	DatabaseDSN         *string         `json:"database_dsn"`
	LocalDBPath         *string         `json:"local_db_path"`
	TokenSecret         *string         `json:"token_secret"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	S3URLValidity       *timex.Duration `json:"s3_url_validity"`
	ProbeURL            *string         `json:"probe_url"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	ReconnectDebounce   *timex.Duration `json:"reconnect_debounce"`
	OpTimeout           *timex.Duration `json:"op_timeout"`
	MaxPendingScans     *int            `json:"max_pending_scans"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// the -c / -config flags. Absent file path means no JSON is loaded. Only
// fields present in the file override the current values. Read or unmarshal
// errors panic; intended usage is defaults -> parseJson -> parseFlags.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != nil {
		cfg.DatabaseDSN = *jc.DatabaseDSN
	}
	if jc.LocalDBPath != nil {
		cfg.LocalDBPath = *jc.LocalDBPath
	}
	if jc.TokenSecret != nil {
		cfg.TokenSecret = *jc.TokenSecret
	}
	if jc.S3AccessKey != nil {
		cfg.S3AccessKey = *jc.S3AccessKey
	}
	if jc.S3SecretKey != nil {
		cfg.S3SecretKey = *jc.S3SecretKey
	}
	if jc.S3Bucket != nil {
		cfg.S3Bucket = *jc.S3Bucket
	}
	if jc.S3Region != nil {
		cfg.S3Region = *jc.S3Region
	}
	if jc.S3BaseEndpoint != nil {
		cfg.S3BaseEndpoint = *jc.S3BaseEndpoint
	}
	if jc.S3URLValidity != nil {
		cfg.S3URLValidity = jc.S3URLValidity.Duration
	}
	if jc.ProbeURL != nil {
		cfg.ProbeURL = *jc.ProbeURL
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.ReconnectDebounce != nil {
		cfg.ReconnectDebounce = jc.ReconnectDebounce.Duration
	}
	if jc.OpTimeout != nil {
		cfg.OpTimeout = jc.OpTimeout.Duration
	}
	if jc.MaxPendingScans != nil {
		cfg.MaxPendingScans = *jc.MaxPendingScans
	}
}
