package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON-friendly field
// types: durations are accepted both as integers (nanoseconds) and as strings
// like "30s" or "5m".
type StructuredJSONConfig struct {
	Account struct {
		Username       string `json:"username"`
		Password       string `json:"password"`
		Token          string `json:"token"`
		SyncPassphrase string `json:"sync_passphrase"`
	} `json:"account,omitempty"`

	Adapter struct {
		NodeURL        string   `json:"node_url"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Storage struct {
		RegistryDSN string `json:"registry_dsn"`
		PrefsPath   string `json:"prefs_path"`
	} `json:"storage,omitempty"`

	Sync struct {
		Interval           Duration `json:"interval"`
		RetryLimit         int      `json:"retry_limit"`
		RetryBaseDelay     Duration `json:"retry_base_delay"`
		OpTimeout          Duration `json:"op_timeout"`
		RecordFailureLimit int      `json:"record_failure_limit"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Account: Account{
			Username:       jsonCfg.Account.Username,
			Password:       jsonCfg.Account.Password,
			Token:          jsonCfg.Account.Token,
			SyncPassphrase: jsonCfg.Account.SyncPassphrase,
		},
		Adapter: Adapter{
			NodeURL:        jsonCfg.Adapter.NodeURL,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Storage: Storage{
			RegistryDSN: jsonCfg.Storage.RegistryDSN,
			PrefsPath:   jsonCfg.Storage.PrefsPath,
		},
		Sync: Sync{
			Interval:           time.Duration(jsonCfg.Sync.Interval),
			RetryLimit:         jsonCfg.Sync.RetryLimit,
			RetryBaseDelay:     time.Duration(jsonCfg.Sync.RetryBaseDelay),
			OpTimeout:          time.Duration(jsonCfg.Sync.OpTimeout),
			RecordFailureLimit: jsonCfg.Sync.RecordFailureLimit,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
