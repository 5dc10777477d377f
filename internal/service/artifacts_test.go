package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/iconidentify/gifgrab/internal/domain"
)

func TestArtifactPath(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, tweetGIF), []byte("GIF89a"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.txt"), []byte("x"), 0644)

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"existing artifact", tweetGIF, false},
		{"missing", "tweet_1.gif", true},
		{"empty", "", true},
		{"dot", ".", true},
		{"parent", "..", true},
		{"traversal", "../secret.txt", true},
		{"nested", "sub/" + tweetGIF, true},
		{"backslash", `..\secret.txt`, true},
		{"directory", "sub", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ArtifactPath(dir, tt.filename)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrArtifactNotFound) {
					t.Errorf("ArtifactPath(%q) error = %v, want ErrArtifactNotFound", tt.filename, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ArtifactPath(%q) error = %v", tt.filename, err)
			}
			if path != filepath.Join(dir, tt.filename) {
				t.Errorf("path = %q", path)
			}
		})
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scratch", "out.gif")
	os.MkdirAll(filepath.Dir(src), 0755)
	os.WriteFile(src, []byte("GIF89a"), 0644)

	dst := filepath.Join(dir, "output", "nested", "tweet_1.gif")
	if err := publish(src, dst); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "GIF89a" {
		t.Errorf("destination = %q, %v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be moved")
	}
}

func TestPublish_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "tweet_1.gif")

	if err := publish(filepath.Join(dir, "nope.gif"), dst); err == nil {
		t.Fatal("publish() should fail for a missing source")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("no destination should be created")
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be removed")
	}
}

func TestGIFService_FreeDiskSpace(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.svc.FreeDiskSpace(); err == nil {
		t.Error("FreeDiskSpace() should fail before the output dir exists")
	}

	if err := os.MkdirAll(env.outDir, 0755); err != nil {
		t.Fatal(err)
	}
	got, err := env.svc.FreeDiskSpace()
	if err != nil {
		t.Fatalf("FreeDiskSpace() error = %v", err)
	}
	if got <= 0 {
		t.Errorf("FreeDiskSpace() = %d, want > 0", got)
	}
}
