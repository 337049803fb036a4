package oversqlite

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EngineConfig is the set of tunables a caller supplies to NewEngine. Most
// fields have validated defaults, following internal/config's
// GetString-with-validated-default idiom (e.g. GetSyncMode/GetConflictStrategy):
// an invalid override is silently replaced by the default rather than
// failing construction outright.
type EngineConfig struct {
	DBPath   string
	UserID   string
	SourceID string

	ServerURL string

	// UploadLimit bounds the number of pending changes sent per UploadOnce
	// call. Default 200 (§4.2).
	UploadLimit int

	// DownloadLimit bounds the page size DownloadOnce requests. Default 200.
	DownloadLimit int

	// IncludeSelf controls whether DownloadOnce asks the server to include
	// changes authored by this source_id. Default false (§4.3).
	IncludeSelf bool

	// AdvanceCursorOnMaterializeError: see §4.5/§9. Default true.
	AdvanceCursorOnMaterializeError bool

	Tables []TableSpec
}

const (
	defaultUploadLimit   = 200
	defaultDownloadLimit = 200
)

// DefaultEngineConfig returns an EngineConfig with every tunable set to its
// documented default (§4.2, §4.3, §9), ready for the caller to override
// individual fields before passing it to NewEngine.
func DefaultEngineConfig(dbPath, userID, sourceID string) EngineConfig {
	return EngineConfig{
		DBPath:                          dbPath,
		UserID:                          userID,
		SourceID:                        sourceID,
		UploadLimit:                     defaultUploadLimit,
		DownloadLimit:                   defaultDownloadLimit,
		IncludeSelf:                     false,
		AdvanceCursorOnMaterializeError: true,
	}
}

// loadViperDefaults reads an optional `.oversqlite.toml` project file into a
// viper instance and applies the host's validated-default pattern: a
// present-but-invalid value is replaced by the compiled-in default rather
// than propagated; nothing is logged.
func loadViperDefaults(v *viper.Viper, cfg *EngineConfig) {
	v.SetConfigName(".oversqlite")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// No project file is a normal case (callers may configure purely in Go).
		return
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = v.GetString("server.url")
	}
	if cfg.UploadLimit == 0 {
		cfg.UploadLimit = getIntWithDefault(v, "upload_limit", defaultUploadLimit)
	}
	if cfg.DownloadLimit == 0 {
		cfg.DownloadLimit = getIntWithDefault(v, "download_limit", defaultDownloadLimit)
	}
	if v.IsSet("include_self") {
		cfg.IncludeSelf = v.GetBool("include_self")
	}
}

func getIntWithDefault(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	n := v.GetInt(key)
	if n <= 0 {
		return def
	}
	return n
}

func normalizeConfig(cfg EngineConfig) (EngineConfig, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, fmt.Errorf("oversqlite: DBPath is required")
	}
	if cfg.UploadLimit <= 0 {
		cfg.UploadLimit = defaultUploadLimit
	}
	if cfg.DownloadLimit <= 0 {
		cfg.DownloadLimit = defaultDownloadLimit
	}
	return cfg, nil
}
