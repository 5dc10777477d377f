package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iconidentify/gifgrab/internal/domain"
)

// ArtifactPath resolves filename inside the output directory. Names that
// are empty, contain path separators or do not exist yield
// ErrArtifactNotFound.
func ArtifactPath(outputDir, filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %q", domain.ErrArtifactNotFound, filename)
	}

	path := filepath.Join(outputDir, filename)
	stat, err := os.Stat(path)
	if err != nil || !stat.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", domain.ErrArtifactNotFound, filename)
	}
	return path, nil
}

// ArtifactPath resolves a produced file by name.
func (s *GIFService) ArtifactPath(filename string) (string, error) {
	return ArtifactPath(s.storage.OutputPath, filename)
}

// publish moves a finished file from the scratch directory to its final
// location. The destination is either the complete file or untouched.
func publish(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Cross-device: copy next to the destination, then rename.
	tempFile := dst + ".tmp"
	if err := copyFile(src, tempFile); err != nil {
		os.Remove(tempFile)
		return err
	}
	if err := os.Rename(tempFile, dst); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("move artifact to final location: %w", err)
	}
	os.Remove(src)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy artifact: %w", err)
	}
	return out.Close()
}

// FreeDiskSpace returns the bytes available to the service in the output
// directory.
func (s *GIFService) FreeDiskSpace() (int64, error) {
	return diskAvailable(s.storage.OutputPath)
}
