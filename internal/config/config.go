// Package config loads the oversqlite project configuration: a
// `.oversqlite.toml` file read through viper, plus the syncable-table
// declaration list read as a standalone YAML document. Both follow the
// host project's typed-getter-with-validated-default idiom (see
// GetString/GetSyncMode-style getters).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

var v = viper.New()

func init() {
	v.SetConfigName(".oversqlite")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("OVERSQLITE")
	v.AutomaticEnv()
}

// Load reads the project config file if present. A missing file is not an
// error — every getter below falls back to its documented default.
func Load() error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("load .oversqlite.toml: %w", err)
	}
	return nil
}

// GetString returns a raw string value from the project config, or "" if
// unset. Mirrors internal/config's GetString convention that callers layer
// their own validated-default logic on top of.
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt returns a raw int value, or 0 if unset.
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool returns a raw bool value, or false if unset.
func GetBool(key string) bool {
	return v.GetBool(key)
}

// ServerMode identifies which upload/download transport shape to use.
// Only "http" is implemented; the type exists so the config surface can
// grow additional transports without a breaking change.
type ServerMode string

const (
	ServerModeHTTP ServerMode = "http"
)

var validServerModes = map[ServerMode]bool{ServerModeHTTP: true}

// GetServerMode retrieves the `server.mode` key, defaulting to http and
// warning to stderr on an unrecognised value, following GetSyncMode's
// validated-default-with-stderr-warning idiom.
func GetServerMode() ServerMode {
	value := GetString("server.mode")
	if value == "" {
		return ServerModeHTTP
	}
	mode := ServerMode(strings.ToLower(strings.TrimSpace(value)))
	if !validServerModes[mode] {
		fmt.Fprintf(os.Stderr, "Warning: invalid server.mode %q in config (valid: http), using default 'http'\n", value)
		return ServerModeHTTP
	}
	return mode
}

// WriteDefaultProjectFile writes a starter `.oversqlite.toml` to path using
// BurntSushi/toml, the encoder the host project already depends on for its
// own TOML surfaces.
func WriteDefaultProjectFile(path, serverURL, userID, sourceID string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	doc := struct {
		Server struct {
			URL  string `toml:"url"`
			Mode string `toml:"mode"`
		} `toml:"server"`
		UserID        string `toml:"user_id"`
		SourceID      string `toml:"source_id"`
		UploadLimit   int    `toml:"upload_limit"`
		DownloadLimit int    `toml:"download_limit"`
		IncludeSelf   bool   `toml:"include_self"`
	}{}
	doc.Server.URL = serverURL
	doc.Server.Mode = string(ServerModeHTTP)
	doc.UserID = userID
	doc.SourceID = sourceID
	doc.UploadLimit = 200
	doc.DownloadLimit = 200
	doc.IncludeSelf = false

	enc := toml.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
