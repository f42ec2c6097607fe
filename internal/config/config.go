package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading environment variables,
// e.g. STREAMLOG_LOG_ROOT.
const EnvPrefix = "STREAMLOG"

const (
	defaultLogRoot      = "~/Logger/Master"
	defaultImageRoot    = "~/Camera/Captures"
	defaultLogFile      = "logging.log"
	defaultPollInterval = 2 * time.Second
	defaultTailLines    = 100
	defaultHost         = "0.0.0.0"
	defaultPort         = 9000
	defaultTitle        = "SMARTCAM Log Viewer"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

type Config struct {
	LogRoot      string        `mapstructure:"log_root"`
	ImageRoot    string        `mapstructure:"image_root"`
	LogFile      string        `mapstructure:"log_file"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	TailLines    int           `mapstructure:"tail_lines"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	StaticDir    string        `mapstructure:"static_dir"`
	Title        string        `mapstructure:"title"`
	Log          LogConfig     `mapstructure:",squash"`
}

type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultLogPath returns the log tailed by / and by /ws/log without a file.
func (c Config) DefaultLogPath() string {
	return filepath.Join(c.LogRoot, c.LogFile)
}

// Defaults registers default values for every key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("log_root", defaultLogRoot)
	v.SetDefault("image_root", defaultImageRoot)
	v.SetDefault("log_file", defaultLogFile)
	v.SetDefault("poll_interval", defaultPollInterval)
	v.SetDefault("tail_lines", defaultTailLines)
	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("static_dir", "")
	v.SetDefault("title", defaultTitle)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)
}

// Load reads the optional config file at path, then the environment, then
// any flags in fs that were explicitly set. Path keys are tilde-expanded and
// made absolute.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %q: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var err error
	if cfg.LogRoot, err = expandPath(cfg.LogRoot); err != nil {
		return nil, fmt.Errorf("log_root: %w", err)
	}
	if cfg.ImageRoot, err = expandPath(cfg.ImageRoot); err != nil {
		return nil, fmt.Errorf("image_root: %w", err)
	}
	if strings.TrimSpace(cfg.StaticDir) != "" {
		if cfg.StaticDir, err = expandPath(cfg.StaticDir); err != nil {
			return nil, fmt.Errorf("static_dir: %w", err)
		}
	}
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	return &cfg, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
