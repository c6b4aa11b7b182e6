package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteConfig is the subset of settings a configuration service may supply.
// Absent fields leave the local value untouched.
type RemoteConfig struct {
	LogLevel        string   `json:"log_level"`
	JavaHome        string   `json:"java_home"`
	SystemProcesses []string `json:"system_processes"`
}

// FetchRemote retrieves a RemoteConfig as JSON from the configuration
// service.
func FetchRemote(url string) (*RemoteConfig, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: unexpected status %s", resp.Status)
	}

	var remote RemoteConfig
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decoding remote config: %w", err)
	}
	return &remote, nil
}

// MergeRemote folds remote settings into the local configuration. Remote
// scalars override local values when set; remote system process names are
// unioned with the local set so a central service can only add coverage,
// never silently drop a locally tracked process.
func MergeRemote(cfg *Config, remote *RemoteConfig) {
	if remote.LogLevel != "" {
		cfg.Logging.Level = remote.LogLevel
	}
	if remote.JavaHome != "" {
		cfg.Java.Home = remote.JavaHome
	}
	if len(remote.SystemProcesses) > 0 {
		seen := make(map[string]bool, len(cfg.SystemProcesses))
		for _, name := range cfg.SystemProcesses {
			seen[name] = true
		}
		for _, name := range remote.SystemProcesses {
			if !seen[name] {
				cfg.SystemProcesses = append(cfg.SystemProcesses, name)
				seen[name] = true
			}
		}
	}
}
