package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			OutputPath: "/data/gifs",
		},
		GIF: GIFConfig{
			VideoFPS:      15,
			VideoWidth:    640,
			ImageFPS:      10,
			FallbackFPS:   15,
			FrameDuration: 500 * time.Millisecond,
		},
		Extractor: ExtractorConfig{
			Path: "yt-dlp",
		},
		Download: DownloadConfig{
			Timeout: 30 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass, got %v", err)
	}
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing output path", func(c *Config) { c.Storage.OutputPath = "" }},
		{"zero video fps", func(c *Config) { c.GIF.VideoFPS = 0 }},
		{"negative image fps", func(c *Config) { c.GIF.ImageFPS = -1 }},
		{"zero fallback fps", func(c *Config) { c.GIF.FallbackFPS = 0 }},
		{"zero width", func(c *Config) { c.GIF.VideoWidth = 0 }},
		{"zero frame duration", func(c *Config) { c.GIF.FrameDuration = 0 }},
		{"zero download timeout", func(c *Config) { c.Download.Timeout = 0 }},
		{"missing yt-dlp path", func(c *Config) { c.Extractor.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default",
			cfg:  ServerConfig{Host: "127.0.0.1", Port: 5000},
			want: "127.0.0.1:5000",
		},
		{
			name: "all interfaces",
			cfg:  ServerConfig{Host: "0.0.0.0", Port: 8080},
			want: "0.0.0.0:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGIFConfig_TargetSizeBytes(t *testing.T) {
	mb := 9.2
	cfg := GIFConfig{TargetSizeMB: mb}
	want := int64(mb * 1024 * 1024)
	if got := cfg.TargetSizeBytes(); got != want {
		t.Errorf("TargetSizeBytes() = %d, want %d", got, want)
	}
}

func TestStorageConfig_TempDir(t *testing.T) {
	cfg := StorageConfig{}
	if got := cfg.TempDir(); got != os.TempDir() {
		t.Errorf("TempDir() = %q, want OS temp dir", got)
	}

	cfg.TempPath = "/scratch"
	if got := cfg.TempDir(); got != "/scratch" {
		t.Errorf("TempDir() = %q, want /scratch", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.GIF.VideoFPS != 15 || cfg.GIF.VideoWidth != 640 || cfg.GIF.ImageFPS != 10 {
		t.Errorf("GIF defaults = %+v", cfg.GIF)
	}
	if cfg.GIF.FrameDuration != 500*time.Millisecond {
		t.Errorf("FrameDuration = %v, want 500ms", cfg.GIF.FrameDuration)
	}
	if cfg.Download.Timeout != 30*time.Second {
		t.Errorf("Download.Timeout = %v, want 30s", cfg.Download.Timeout)
	}
	if !cfg.Browser.Enabled || cfg.Browser.MinImageSize != 100 {
		t.Errorf("Browser defaults = %+v", cfg.Browser)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8080
  api_key: "yaml-api-key"
storage:
  output_path: "/srv/gifs"
  temp_path: "/yaml/tmp"
gif:
  video_fps: 24
  frame_duration: 250ms
browser:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080 from YAML", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "yaml-api-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Server.APIKey, "yaml-api-key")
	}
	if cfg.Storage.OutputPath != "/srv/gifs" {
		t.Errorf("OutputPath = %q, want /srv/gifs from YAML", cfg.Storage.OutputPath)
	}
	if cfg.Storage.TempPath != "/yaml/tmp" {
		t.Errorf("TempPath = %q, want %q", cfg.Storage.TempPath, "/yaml/tmp")
	}
	if cfg.GIF.VideoFPS != 24 {
		t.Errorf("VideoFPS = %d, want 24 from YAML", cfg.GIF.VideoFPS)
	}
	if cfg.GIF.FrameDuration != 250*time.Millisecond {
		t.Errorf("FrameDuration = %v, want 250ms from YAML", cfg.GIF.FrameDuration)
	}
	if cfg.Browser.Enabled {
		t.Error("Browser.Enabled = true, want false from YAML")
	}

	// Fields the file leaves out keep their defaults.
	if cfg.GIF.VideoWidth != 640 || cfg.Download.Timeout != 30*time.Second {
		t.Errorf("defaults lost: width %d, download timeout %v", cfg.GIF.VideoWidth, cfg.Download.Timeout)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  api_key: "yaml-api-key"
storage:
  output_path: "/yaml/out"
gif:
  video_width: 320
  image_fps: 6
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("OUTPUT_PATH", "/env/out")
	t.Setenv("GIF_VIDEO_WIDTH", "480")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("APIKey should be from env, got %q", cfg.Server.APIKey)
	}
	if cfg.Storage.OutputPath != "/env/out" {
		t.Errorf("OutputPath should be from env, got %q", cfg.Storage.OutputPath)
	}
	if cfg.GIF.VideoWidth != 480 {
		t.Errorf("VideoWidth = %d, want 480 from env", cfg.GIF.VideoWidth)
	}
	if cfg.GIF.ImageFPS != 6 {
		t.Errorf("ImageFPS = %d, want 6 from YAML", cfg.GIF.ImageFPS)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("GIF_IMAGE_FPS=4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GIF_IMAGE_FPS") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GIF.ImageFPS != 4 {
		t.Errorf("ImageFPS = %d, want 4 from .env", cfg.GIF.ImageFPS)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GIF_VIDEO_FPS", "0")

	_, err := Load("")
	if err == nil {
		t.Error("Load should fail validation with a zero frame rate")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
