package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Age Dashboard"
	AppID             = "com.github.antoleandarius-dev.age-dashboard"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	DBFileName        = "dashboard.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating the data and cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagPort         = "port"
	FlagDBPath       = "db"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescPort     = "Port for the local dashboard server"
	FlagDescDBPath   = "Path to the dashboard database (defaults to the user cache dir)"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Storage Keys
// -----------------------------------------------------------------------------

// These key names are the on-disk contract. Renaming any of them orphans the
// data previously stored under the old name.
const (
	KeyDOB              = "dob"
	KeySettings         = "settings"
	KeyTodos            = "todos"
	KeyAnniversaries    = "anniversaries"
	KeyMilestoneHistory = "milestoneHistory"
	KeyCelebrated       = "celebratedMilestones"
	KeyCrashLogs        = "crashLogs"
)

// StorageKeys lists every key loaded at startup.
var StorageKeys = []string{
	KeyDOB,
	KeySettings,
	KeyTodos,
	KeyAnniversaries,
	KeyMilestoneHistory,
	KeyCelebrated,
	KeyCrashLogs,
}

// -----------------------------------------------------------------------------
// Time Units (fixed lengths, milliseconds)
// -----------------------------------------------------------------------------

const (
	MillisPerSecond int64 = 1000
	MillisPerHour   int64 = 60 * 60 * 1000
	MillisPerDay    int64 = 24 * 60 * 60 * 1000

	// MillisPerYear uses a fixed 365.25-day year. The age display and the
	// milestone crossing instants are both defined against this constant.
	MillisPerYear int64 = MillisPerDay*365 + MillisPerDay/4
)

// -----------------------------------------------------------------------------
// Update Intervals & Limits
// -----------------------------------------------------------------------------

const (
	AgeUpdateInterval   = 300 * time.Millisecond
	ClockUpdateInterval = time.Second
	StorageDebounce     = 300 * time.Millisecond

	MaxAgeYears         = 150
	MaxCrashLogs        = 50
	MaxMilestoneHistory = 50

	CrashLoopWindow    = time.Minute
	MaxCrashesInWindow = 5

	AgeFractionDigits = 9
)

// -----------------------------------------------------------------------------
// Milestone Units
// -----------------------------------------------------------------------------

const (
	UnitDays    = "days"
	UnitHours   = "hours"
	UnitSeconds = "seconds"
)

// -----------------------------------------------------------------------------
// Settings Keys & Values
// -----------------------------------------------------------------------------

const (
	SettingShowStats         = "showStats"
	SettingShowMilestones    = "showMilestones"
	SettingShowClock         = "showClock"
	SettingShowTodo          = "showTodo"
	SettingShowAnniversaries = "showAnniversaries"
	SettingShowAnimation     = "showAnimation"
	SettingTheme             = "theme"

	ThemeDark  = "dark"
	ThemeLight = "light"

	// SettingWildcard is the listener key used for bulk reset/import notifications.
	SettingWildcard = "*"
)

// -----------------------------------------------------------------------------
// Date Formats
// -----------------------------------------------------------------------------

const (
	DateFormatISO = "2006-01-02"

	// Additional layouts accepted when importing vCard BDAY values.
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// DefaultLeapYear is the fallback year for truncated --MM-DD dates,
	// chosen so Feb 29 stays representable.
	DefaultLeapYear = 2000
)

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

const (
	DefaultPort     = "18423"
	DefaultLanguage = "en"
)

// -----------------------------------------------------------------------------
// iCalendar Feed & vCard Import
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Age Dashboard//Feed//EN"
	ICalCalName = "Anniversaries & Milestones"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "agedash"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"

	DefaultICalRefresh = 1 * time.Hour

	UIDSalt         = "age-dashboard-v1-"
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	FallbackName = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object served while the
	// feed has no events, so clients never see an invalid body.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	RouteRoot          = "/"
	RouteDashboard     = "/dashboard.json"
	RouteCalendar      = "/calendar"
	AddrSeparator      = ":"
	MinPort            = 1
	MaxPort            = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeApplicationJSON = "application/json; charset=utf-8"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyErrInvalidFormat = "err_invalid_format"
	TKeyErrFutureDate    = "err_future_date"
	TKeyErrMaxAge        = "err_max_age"
	TKeyErrNoDOB         = "err_no_dob"
	TKeyErrSaveFailed    = "err_save_failed"
	TKeyMilestoneReached = "milestone_reached"
	TKeyCountdownToday   = "countdown_today"
	TKeyCountdownOne     = "countdown_one_day"
	TKeyCountdownMany    = "countdown_many_days"
	TKeyBirthdayToday    = "birthday_today"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrDBPathEmpty     = "storage error: database path is empty"
	ErrOpenDB          = "failed to open dashboard database"
	ErrPingDB          = "failed to reach dashboard database"
	ErrMigrateDB       = "failed to prepare dashboard schema"
	ErrStorageGet      = "storage read failed"
	ErrStorageSet      = "storage write failed"
	ErrStorageRemove   = "storage remove failed"
	ErrStorageClear    = "storage clear failed"
	ErrEncodeValue     = "failed to encode value for storage"
	ErrDecodeValue     = "failed to decode stored value"
	ErrUnknownSetting  = "unknown settings key"
	ErrBadSettingValue = "invalid value for settings key"
	ErrImportRejected  = "settings import rejected"
	ErrAlreadyRunning  = "dashboard session already initialized"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrPortNumber      = "server port must be a number"
	ErrPortRange       = "server port must be between 1 and 65535"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrSnapshotEncode  = "failed to encode dashboard snapshot"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrDateParse       = "unable to parse date"
	ErrLabelEmpty      = "anniversary label is empty"
	ErrDateEmpty       = "anniversary date is empty"
	ErrWriteResp       = "failed to write response body"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app data dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrLocNotInit      = "localizer not initialized"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Dashboard initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Application stopped gracefully"
	MsgCtxCancel        = "Context cancelled, shutting down"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgSnapshotUpdated  = "Dashboard snapshot updated"
	MsgStateLoaded      = "Persisted state loaded"
	MsgDOBSaved         = "Date of birth saved"
	MsgDOBMissing       = "No date of birth stored yet"
	MsgMilestoneReached = "Milestone reached"
	MsgMilestonesRecalc = "Milestone dates recalculated"
	MsgWriteFailed      = "Persist failed, cache remains authoritative"
	MsgWriteFlushed     = "Pending writes flushed"
	MsgSettingChanged   = "Setting changed"
	MsgSettingsImported = "Settings imported"
	MsgSettingsReset    = "Settings reset to defaults"
	MsgTodoAdded        = "Todo added"
	MsgTodoRejected     = "Empty todo rejected"
	MsgAnnivAdded       = "Anniversary added"
	MsgAnnivImported    = "Anniversaries imported from vCard"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgSkippedDate      = "Skipping invalid date format"
	MsgCrashRecorded    = "Crash recorded"
	MsgCrashLoop        = "Crash loop detected"
	MsgTickersStarted   = "Refresh tickers started"
	MsgTickersStopped   = "Refresh tickers stopped"
	MsgCacheUpdated     = "Snapshot cache updated"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleBadName    = "Skipping malformed locale filename"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyKey       = "key"
	LogKeyValue     = "value"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyPort      = "port"
	LogKeyPath      = "path"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyID        = "id"
	LogKeyDOB       = "date_of_birth"
	LogKeySession   = "session"
	LogKeyDuration  = "duration_ms"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyContext   = "context"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain      = "main"
	CompApp       = "app"
	CompStorage   = "storage"
	CompEngine    = "engine"
	CompMilestone = "milestone"
	CompSettings  = "settings"
	CompTasks     = "tasks"
	CompAnniv     = "anniversary"
	CompServer    = "server"
	CompCrashLog  = "crashlog"
	CompI18n      = "i18n"
)
