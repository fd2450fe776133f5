package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	LDM          LDMConfig          `mapstructure:"ldm"`
	Interception InterceptConfig    `mapstructure:"interception"`
	Scanner      ScannerConfig      `mapstructure:"scanner"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains the bridge HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LDMConfig describes how to reach the local download manager
type LDMConfig struct {
	BaseURL                 string        `mapstructure:"base_url"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	PingTimeout             time.Duration `mapstructure:"ping_timeout"`
	TokenTTL                time.Duration `mapstructure:"token_ttl"`
	TokenRefreshSchedule    string        `mapstructure:"token_refresh_schedule"` // cron spec, e.g. "@every 10m"
	ConnectionCheckInterval time.Duration `mapstructure:"connection_check_interval"`
	StatusPollInterval      time.Duration `mapstructure:"status_poll_interval"`
}

// InterceptConfig seeds the persisted settings on first start
type InterceptConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	IgnoredExtensions []string `mapstructure:"ignored_extensions"`
	MinFileSizeKB     int64    `mapstructure:"min_file_size_kb"`
	DomainAllowlist   []string `mapstructure:"domain_allowlist"`
	DomainDenylist    []string `mapstructure:"domain_denylist"`
	StrictHostnames   bool     `mapstructure:"strict_hostnames"`
}

// ScannerConfig contains page scanner configuration
type ScannerConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	UseBrowserCookies bool          `mapstructure:"use_browser_cookies"`
	ExtractorSites    []string      `mapstructure:"extractor_sites"`
	SkipScanSites     []string      `mapstructure:"skip_scan_sites"`
}

// HistoryConfig contains history persistence configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	MaxEntries   int    `mapstructure:"max_entries"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Method string `mapstructure:"method"` // osascript, notify-send, none
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`
}

// DefaultLDMPort is the fixed loopback port of the LDM HTTP service
const DefaultLDMPort = 45678

// DefaultHistoryLimit caps the recent history list
const DefaultHistoryLimit = 50

// DefaultIgnoredExtensions are image types the browser handles better on its own
var DefaultIgnoredExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}

// DefaultExtractorSites are hosts whose pages need an external extraction tool
var DefaultExtractorSites = []string{
	"youtube.com", "youtu.be", "youtube-nocookie.com",
	"vimeo.com", "dailymotion.com",
	"twitter.com", "x.com", "t.co",
	"facebook.com", "fb.watch", "instagram.com",
	"tiktok.com", "vm.tiktok.com",
	"twitch.tv", "clips.twitch.tv",
	"reddit.com", "v.redd.it",
	"streamable.com", "gfycat.com", "imgur.com",
	"bilibili.com", "nicovideo.jp",
	"soundcloud.com", "bandcamp.com",
	"xvideos.com", "xhamster.com",
	"crunchyroll.com", "funimation.com",
	"ted.com", "vk.com", "ok.ru",
	"rumble.com", "bitchute.com", "odysee.com",
	"hotstar.com", "zee5.com", "sonyliv.com",
}

// DefaultSkipScanSites are hosts whose embedded players misbehave when scanned
var DefaultSkipScanSites = []string{"pornhub.com"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 45679,
		},
		LDM: LDMConfig{
			BaseURL:                 "http://127.0.0.1:45678",
			RequestTimeout:          10 * time.Second,
			PingTimeout:             2 * time.Second,
			TokenTTL:                30 * time.Minute,
			TokenRefreshSchedule:    "@every 10m",
			ConnectionCheckInterval: 5 * time.Second,
			StatusPollInterval:      time.Second,
		},
		Interception: InterceptConfig{
			Enabled:           true,
			IgnoredExtensions: append([]string(nil), DefaultIgnoredExtensions...),
			MinFileSizeKB:     0,
			DomainAllowlist:   []string{},
			DomainDenylist:    []string{},
			StrictHostnames:   false,
		},
		Scanner: ScannerConfig{
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) ldm-bridge/1.0",
			FetchTimeout:      15 * time.Second,
			UseBrowserCookies: false,
			ExtractorSites:    append([]string(nil), DefaultExtractorSites...),
			SkipScanSites:     append([]string(nil), DefaultSkipScanSites...),
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/.ldm-bridge/bridge.db",
			MaxEntries:   DefaultHistoryLimit,
		},
		Notification: NotificationConfig{
			Method: "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.ldm-bridge/logs",
		},
	}
}

// InitialSettings converts the interception section into persisted settings
func (c InterceptConfig) InitialSettings() *Settings {
	s := &Settings{
		InterceptEnabled:     c.Enabled,
		IgnoredExtensions:    append([]string(nil), c.IgnoredExtensions...),
		MinFileSizeKB:        c.MinFileSizeKB,
		DomainAllowlist:      append([]string(nil), c.DomainAllowlist...),
		DomainDenylist:       append([]string(nil), c.DomainDenylist...),
		StrictHostnames:      c.StrictHostnames,
		NotificationsEnabled: true,
		SoundEnabled:         true,
	}
	s.Normalize()
	return s
}
