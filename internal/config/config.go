package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrCreated is returned by Load when no config existed and a default one
// was written in its place.
var ErrCreated = errors.New("default configuration written, edit it and restart")

// Config holds all bot configuration
type Config struct {
	Server      Server            `yaml:"server"`
	Modules     Modules           `yaml:"modules"`
	Moderation  Moderation        `yaml:"moderation"`
	Links       map[string]string `yaml:"links"`
	SecretLinks map[string]string `yaml:"secret_links"`
	News        string            `yaml:"news"`
	Admins      []string          `yaml:"admins"`
	Wiki        Wiki              `yaml:"wiki"`
	YouTube     YouTube           `yaml:"youtube"`
	Lookups     Lookups           `yaml:"lookups"`
	DataDir     string            `yaml:"data_dir"`
	Database    string            `yaml:"database"`
	MetricsAddr string            `yaml:"metrics_addr"`
	LogLevel    string            `yaml:"log_level"`
}

// Server is the IRC connection section
type Server struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	TLS         bool          `yaml:"tls"`
	TLSInsecure bool          `yaml:"tls_insecure"`
	ServerPass  string        `yaml:"server_pass"`
	Nick        string        `yaml:"nick"`
	Alternate   string        `yaml:"alternate"`
	NickPass    string        `yaml:"nick_pass"`
	Username    string        `yaml:"username"`
	IRCName     string        `yaml:"irc_name"`
	Channels    []string      `yaml:"channels"`
	JoinDelay   time.Duration `yaml:"join_delay"`
}

// Modules toggles the feature modules. Help is always on.
type Modules struct {
	NormalLinks    bool `yaml:"normal_links"`
	SecretLinks    bool `yaml:"secret_links"`
	LanguageFilter bool `yaml:"language_filter"`
	SpamFilter     bool `yaml:"spam_filter"`
	News           bool `yaml:"news"`
	Choose         bool `yaml:"choose"`
	Admin          bool `yaml:"admin"`
	Wiki           bool `yaml:"wiki"`
	YouTube        bool `yaml:"youtube"`
	Calculator     bool `yaml:"calculator"`
	AutoMode       bool `yaml:"auto_mode"`
	Dice           bool `yaml:"dice"`
}

// Moderation holds the kick/ban thresholds and banned words
type Moderation struct {
	RepeatsUntilKick int      `yaml:"repeats_until_kick"`
	KicksUntilBan    int      `yaml:"kicks_until_ban"`
	BannedWords      []string `yaml:"banned_words"`
}

// Wiki points the search module at a MediaWiki install
type Wiki struct {
	BaseURL string `yaml:"base_url"`
	Command string `yaml:"command"`
}

// YouTube configures link expansion
type YouTube struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`
}

// Lookups throttles the modules that call out over HTTP
type Lookups struct {
	PerMinute int           `yaml:"per_minute"`
	Burst     int           `yaml:"burst"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration written for first-time users. It will not
// connect anywhere until a server and channels are filled in.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:      6667,
			Nick:      "snaibot",
			Alternate: "snaibot_",
			Username:  "snaibot",
			IRCName:   "snaibot",
			JoinDelay: 10 * time.Second,
		},
		Moderation: Moderation{
			RepeatsUntilKick: 5,
			KicksUntilBan:    5,
			BannedWords: []string{
				"fuck", "cunt", "shit", "faggot", "f4gg0t", "f4ggot", "f4g",
				"dick", "d1ck", "d1ckhead", "dickhead", "cocksucker", "pussy",
				"motherfucker", "muthafucker", "muthafucka", "fucker",
				"fucking", "fuckin", "fuckhead", "fuckface",
			},
		},
		Links: map[string]string{
			"source":  "https://github.com/snaiperskaya/snaibot/",
			"snaibot": "I was built by snaiperskaya for the good of all mankind...",
		},
		SecretLinks: map[string]string{
			"secret": "These links will not show up in *commands and will only send via query.",
		},
		News:   "*Insert Useful News Here*",
		Admins: []string{"snaiperskaya"},
		Wiki: Wiki{
			BaseURL: "http://atlwiki.net",
			Command: "atlwiki",
		},
		YouTube: YouTube{
			APIURL:    "https://www.googleapis.com/youtube/v3",
			CacheSize: 512,
		},
		Lookups: Lookups{
			PerMinute: 10,
			Burst:     3,
			Timeout:   10 * time.Second,
		},
		DataDir:  "./data",
		Database: "snaibot.db",
		LogLevel: "info",
	}
}

// Load reads and parses a YAML configuration file. Missing fields keep their
// defaults. If the file does not exist a default one is written and
// ErrCreated is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
		return nil, ErrCreated
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	// yaml merges into existing maps, so only defaults for scalars and lists
	cfg.Links, cfg.SecretLinks = nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes Default() to path, creating parent directories.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "failed to encode default config")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create config directory")
		}
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "failed to write default config")
}

// applyEnv lets secrets live outside the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SNAIBOT_NICK_PASS"); v != "" {
		c.Server.NickPass = v
	}
	if v := os.Getenv("SNAIBOT_SERVER_PASS"); v != "" {
		c.Server.ServerPass = v
	}
	if v := os.Getenv("SNAIBOT_YOUTUBE_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
}

func (c *Config) normalize() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Database == "" {
		c.Database = "snaibot.db"
	}
	if c.Server.Alternate == "" {
		c.Server.Alternate = c.Server.Nick + "_"
	}
	if c.Server.Username == "" {
		c.Server.Username = c.Server.Nick
	}
	if c.Server.IRCName == "" {
		c.Server.IRCName = c.Server.Nick
	}
	c.Wiki.BaseURL = strings.TrimRight(c.Wiki.BaseURL, "/")
	c.Wiki.Command = strings.ToLower(strings.TrimPrefix(c.Wiki.Command, "*"))

	// list entries in the old settings file were comma separated
	c.Server.Channels = splitList(c.Server.Channels)
	c.Admins = splitList(c.Admins)
	c.Moderation.BannedWords = splitList(c.Moderation.BannedWords)
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks that the configuration can drive a bot.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Nick == "" {
		return errors.New("server.nick is required")
	}
	for _, ch := range c.Server.Channels {
		if !IsChannel(ch) {
			return errors.Errorf("server.channels: %q is not a channel", ch)
		}
	}
	if c.Moderation.RepeatsUntilKick < 1 {
		return errors.New("moderation.repeats_until_kick must be at least 1")
	}
	if c.Moderation.KicksUntilBan < 1 {
		return errors.New("moderation.kicks_until_ban must be at least 1")
	}
	if c.Modules.Wiki && (c.Wiki.BaseURL == "" || c.Wiki.Command == "") {
		return errors.New("wiki module needs wiki.base_url and wiki.command")
	}
	if c.Modules.YouTube && c.YouTube.APIKey == "" {
		return errors.New("youtube module needs youtube.api_key")
	}
	return nil
}

// IsChannel reports whether name looks like an IRC channel.
func IsChannel(name string) bool {
	return len(name) > 1 && (name[0] == '#' || name[0] == '&')
}

// LinkKeywords returns the public link keywords in a stable order.
func (c *Config) LinkKeywords() []string {
	keys := make([]string, 0, len(c.Links))
	for k := range c.Links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DatabasePath resolves the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.DataDir, c.Database)
}
