package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "tenken"
	DefaultKeyringUser = "store-connection"
	AzureKeyringUser   = "azure-connection"
	DefaultConfigDir   = "~/.config/tenken"
	DefaultConfigFile  = "config.yaml"
	DefaultStorePath   = "~/.config/tenken/tenken.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// LogDisplaySeparator joins the date and operator of a completion log for display
	LogDisplaySeparator = "・"

	// DefaultLinkLabel is shown for reference links attached without an explicit label
	DefaultLinkLabel = "参照ファイル"

	// MemoCollection holds the operator memo board
	MemoCollection = "memos"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "tenken-"
	BackupFileSuffix = ".db"

	// Redis cache defaults
	DefaultCacheTTL  = 5 * time.Minute
	CacheKeyPrefix   = "tenken:"
	AzureBatchLimit  = 100
	DefaultAzureName = "tenken"
)

// Session States
const (
	StateSettings SessionState = iota
	StateRun
	StateEditing
	StateConfirm
)
