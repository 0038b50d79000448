// Package config assembles settings from defaults, an optional TOML file and
// ASSETGEN_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

const envPrefix = "ASSETGEN_"

// EnvConfigFile names the TOML file to load when no path is given.
const EnvConfigFile = envPrefix + "CONFIG"

// Poll bounds the history poll loop for one asset kind.
type Poll struct {
	IntervalStr string        `toml:"poll-interval"`
	MaxPolls    int           `toml:"max-polls"`
	Interval    time.Duration `toml:"-"`
}

type Config struct {
	ServerURL   string `toml:"server-url"`
	AssetRoot   string `toml:"asset-root"`
	DataDir     string `toml:"data-dir"`
	WorkflowDir string `toml:"workflow-dir"`

	HTTPTimeoutStr string        `toml:"http-timeout"`
	HTTPTimeout    time.Duration `toml:"-"`

	Image Poll `toml:"image"`
	Audio Poll `toml:"audio"`

	DefaultModel    string `toml:"default-model"`
	ModelPreference string `toml:"model-preference"`
	PostProcessNode string `toml:"post-process-node"`

	// Addr is the listen address of the ledger API.
	Addr string `toml:"addr"`

	LogLevel  string `toml:"log-level"`
	LogFormat string `toml:"log-format"`
}

func Default() Config {
	return Config{
		ServerURL:       "http://127.0.0.1:8188",
		AssetRoot:       ".",
		DataDir:         ".assetgen",
		HTTPTimeoutStr:  "30s",
		Image:           Poll{IntervalStr: "1s", MaxPolls: 600},
		Audio:           Poll{IntervalStr: "2s", MaxPolls: 300},
		DefaultModel:    "v1-5-pruned-emaonly.ckpt",
		ModelPreference: "v1-5",
		PostProcessNode: "Image Remove Background (rembg)",
		Addr:            ":8090",
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load returns the defaults overlaid with the TOML file at path (or the file
// named by ASSETGEN_CONFIG when path is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.fromFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.fromEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.adjust(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fromFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		items := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			items = append(items, k.String())
		}
		return fmt.Errorf("config file %s has unknown items: %s", path, strings.Join(items, ", "))
	}
	return nil
}

func (c *Config) fromEnv() error {
	c.ServerURL = getenv(envPrefix+"SERVER_URL", c.ServerURL)
	c.AssetRoot = getenv(envPrefix+"ASSET_ROOT", c.AssetRoot)
	c.DataDir = getenv(envPrefix+"DATA_DIR", c.DataDir)
	c.WorkflowDir = getenv(envPrefix+"WORKFLOW_DIR", c.WorkflowDir)
	c.HTTPTimeoutStr = getenv(envPrefix+"HTTP_TIMEOUT", c.HTTPTimeoutStr)
	c.Image.IntervalStr = getenv(envPrefix+"IMAGE_POLL_INTERVAL", c.Image.IntervalStr)
	c.Audio.IntervalStr = getenv(envPrefix+"AUDIO_POLL_INTERVAL", c.Audio.IntervalStr)
	c.DefaultModel = getenv(envPrefix+"DEFAULT_MODEL", c.DefaultModel)
	c.ModelPreference = getenv(envPrefix+"MODEL_PREFERENCE", c.ModelPreference)
	c.PostProcessNode = getenv(envPrefix+"POST_PROCESS_NODE", c.PostProcessNode)
	c.Addr = getenv(envPrefix+"ADDR", c.Addr)
	c.LogLevel = getenv(envPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv(envPrefix+"LOG_FORMAT", c.LogFormat)

	var err error
	c.Image.MaxPolls, err = getenvInt(envPrefix+"IMAGE_MAX_POLLS", c.Image.MaxPolls)
	var audioErr error
	c.Audio.MaxPolls, audioErr = getenvInt(envPrefix+"AUDIO_MAX_POLLS", c.Audio.MaxPolls)
	return multierr.Append(err, audioErr)
}

// adjust parses the duration strings and checks value ranges.
func (c *Config) adjust() error {
	var errs error
	var err error
	if c.HTTPTimeout, err = time.ParseDuration(c.HTTPTimeoutStr); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("http-timeout: %w", err))
	}
	for name, p := range map[string]*Poll{"image": &c.Image, "audio": &c.Audio} {
		if p.Interval, err = time.ParseDuration(p.IntervalStr); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.poll-interval: %w", name, err))
		} else if p.Interval <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s.poll-interval must be positive", name))
		}
		if p.MaxPolls < 1 {
			errs = multierr.Append(errs, fmt.Errorf("%s.max-polls must be at least 1, got %d", name, p.MaxPolls))
		}
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("server-url %q is not an absolute URL", c.ServerURL))
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	return errs
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
