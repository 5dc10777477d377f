package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	GIF       GIFConfig       `yaml:"gif"`
	Extractor ExtractorConfig `yaml:"extractor"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Download  DownloadConfig  `yaml:"download"`
	Browser   BrowserConfig   `yaml:"browser"`
	Worker    WorkerConfig    `yaml:"worker"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"5000"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"15m"`
}

// StorageConfig holds filesystem locations.
type StorageConfig struct {
	// OutputPath is where finished GIFs and downloaded videos are written.
	OutputPath string `yaml:"output_path" envconfig:"OUTPUT_PATH" default:"./output"`
	// TempPath holds per-request scratch directories. Empty means the OS temp dir.
	TempPath string `yaml:"temp_path" envconfig:"TEMP_PATH"`
}

// GIFConfig holds encoding parameters.
type GIFConfig struct {
	VideoFPS          int           `yaml:"video_fps" envconfig:"GIF_VIDEO_FPS" default:"15"`
	VideoWidth        int           `yaml:"video_width" envconfig:"GIF_VIDEO_WIDTH" default:"640"`
	ImageFPS          int           `yaml:"image_fps" envconfig:"GIF_IMAGE_FPS" default:"10"`
	FrameDuration     time.Duration `yaml:"frame_duration" envconfig:"GIF_FRAME_DURATION" default:"500ms"`
	FallbackFPS       int           `yaml:"fallback_fps" envconfig:"GIF_FALLBACK_FPS" default:"15"`
	FallbackMaxFrames int           `yaml:"fallback_max_frames" envconfig:"GIF_FALLBACK_MAX_FRAMES" default:"300"`
	TargetSizeMB      float64       `yaml:"target_size_mb" envconfig:"GIF_TARGET_SIZE_MB" default:"9.2"`
}

// TargetSizeBytes returns the size budget in bytes.
func (c GIFConfig) TargetSizeBytes() int64 {
	return int64(c.TargetSizeMB * 1024 * 1024)
}

// ExtractorConfig holds yt-dlp configuration.
type ExtractorConfig struct {
	Path    string        `yaml:"path" envconfig:"YTDLP_PATH" default:"yt-dlp"`
	Timeout time.Duration `yaml:"timeout" envconfig:"YTDLP_TIMEOUT" default:"5m"`
}

// FFmpegConfig holds external encoder configuration.
type FFmpegConfig struct {
	Path      string        `yaml:"path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	ProbePath string        `yaml:"probe_path" envconfig:"FFPROBE_PATH" default:"ffprobe"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"FFMPEG_TIMEOUT" default:"5m"`
}

// DownloadConfig holds direct HTTP download configuration.
type DownloadConfig struct {
	// Timeout bounds waiting for response headers and any gap between body reads.
	Timeout   time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"30s"`
	UserAgent string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// BrowserConfig holds headless browser fallback configuration.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"BROWSER_ENABLED" default:"true"`
	ExecPath     string        `yaml:"exec_path" envconfig:"BROWSER_EXEC_PATH"`
	SettleTime   time.Duration `yaml:"settle_time" envconfig:"BROWSER_SETTLE_TIME" default:"5s"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"BROWSER_TIMEOUT" default:"60s"`
	MinImageSize int           `yaml:"min_image_size" envconfig:"BROWSER_MIN_IMAGE_SIZE" default:"100"`
	WindowWidth  int           `yaml:"window_width" envconfig:"BROWSER_WINDOW_WIDTH" default:"1920"`
	WindowHeight int           `yaml:"window_height" envconfig:"BROWSER_WINDOW_HEIGHT" default:"1080"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"1"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"1s"`
}

// PipelineConfig bounds a single conversion.
type PipelineConfig struct {
	Timeout time.Duration `yaml:"timeout" envconfig:"PIPELINE_TIMEOUT" default:"10m"`
}

// Load reads configuration with the precedence defaults < YAML file <
// environment. A local .env file counts as environment.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load(".env")

	// Defaults plus whatever the environment sets.
	envCfg := &Config{}
	if err := envconfig.Process("", envCfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg := *envCfg
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		// The file replaced defaults and environment alike; put back the
		// variables that are actually set.
		overlayEnv(reflect.ValueOf(&cfg).Elem(), reflect.ValueOf(envCfg).Elem())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// overlayEnv copies every field whose envconfig variable is set from src
// to dst.
func overlayEnv(dst, src reflect.Value) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type.Kind() == reflect.Struct {
			overlayEnv(dst.Field(i), src.Field(i))
			continue
		}
		name := field.Tag.Get("envconfig")
		if name == "" {
			continue
		}
		if _, ok := os.LookupEnv(name); ok {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Storage.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	if c.GIF.VideoFPS <= 0 || c.GIF.ImageFPS <= 0 || c.GIF.FallbackFPS <= 0 {
		return fmt.Errorf("GIF frame rates must be positive")
	}
	if c.GIF.VideoWidth <= 0 {
		return fmt.Errorf("GIF_VIDEO_WIDTH must be positive")
	}
	if c.GIF.FrameDuration <= 0 {
		return fmt.Errorf("GIF_FRAME_DURATION must be positive")
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}
	if c.Extractor.Path == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}
	return nil
}

// TempDir returns the directory request scratch space is created in.
func (c *StorageConfig) TempDir() string {
	if c.TempPath != "" {
		return c.TempPath
	}
	return os.TempDir()
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
