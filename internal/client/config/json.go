package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mediagate/internal/flagx"
	"github.com/dmitrijs2005/mediagate/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "zero" so a partial file only overrides
// what it names.
type JsonConfig struct {
	HomeserverURL    *string         `json:"homeserver_url"`
	RequestTimeout   *timex.Duration `json:"request_timeout"`
	SealPolicy       *string         `json:"seal_policy"`
	JournalPath      *string         `json:"journal_path"`
	ExportDir        *string         `json:"export_dir"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	S3AccessKey      *string         `json:"s3_access_key"`
	S3SecretKey      *string         `json:"s3_secret_key"`
	S3Prefix         *string         `json:"s3_prefix"`
	BatchParallelism *int            `json:"batch_parallelism"`
	LogLevel         *string         `json:"log_level"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays cfg with the JSON file named by -c or -config.
// Without either flag nothing happens. Read or unmarshal errors panic.
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

	setString(&cfg.HomeserverURL, jc.HomeserverURL)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	setString(&cfg.SealPolicy, jc.SealPolicy)
	setString(&cfg.JournalPath, jc.JournalPath)
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	if jc.BatchParallelism != nil {
		cfg.BatchParallelism = *jc.BatchParallelism
	}
	setString(&cfg.LogLevel, jc.LogLevel)
}
