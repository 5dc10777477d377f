package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/gifgrab/internal/classifier"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
	"github.com/iconidentify/gifgrab/pkg/ytdlp"
)

// fakeDownloader mimics yt-dlp downloads by writing files next to the
// output template.
type fakeDownloader struct {
	write    []string // extensions to write, in order
	report   bool     // fill requested_downloads
	partial  bool     // leave a .part file before failing
	err      error
	lastOpts ytdlp.DownloadOptions
	calls    int
}

func (f *fakeDownloader) Extract(ctx context.Context, url string, opts ytdlp.ExtractOptions) (*ytdlp.Info, error) {
	return nil, errors.New("not used")
}

func (f *fakeDownloader) Download(ctx context.Context, url string, opts ytdlp.DownloadOptions) (*ytdlp.Info, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		if f.partial {
			os.WriteFile(strings.Replace(opts.OutputTemplate, "%(ext)s", "mp4.part", 1), []byte("half"), 0644)
		}
		return nil, f.err
	}
	info := &ytdlp.Info{ID: "dQw4w9WgXcQ"}
	mod := time.Now().Add(-time.Hour)
	for _, ext := range f.write {
		p := strings.Replace(opts.OutputTemplate, "%(ext)s", ext, 1)
		if err := os.WriteFile(p, []byte("video-"+ext), 0644); err != nil {
			return nil, err
		}
		os.Chtimes(p, mod, mod)
		mod = mod.Add(time.Minute)
		if f.report {
			info.RequestedDownloads = append(info.RequestedDownloads, ytdlp.RequestedDownload{Filepath: p, Ext: ext})
		}
	}
	return info, nil
}

func newYouTubeService(t *testing.T, dl *fakeDownloader) (*YouTubeService, string, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	tmp := t.TempDir()
	svc := NewYouTubeService(
		classifier.New(),
		dl,
		config.StorageConfig{OutputPath: out, TempPath: tmp},
		time.Minute,
		testLogger(),
	)
	return svc, out, tmp
}

func TestFormatSelector(t *testing.T) {
	tests := []struct {
		quality, container string
		want               string
		wantErr            bool
	}{
		{"best", "mp4", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", false},
		{"", "", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", false},
		{"medium", "webm", "bestvideo[height<=720][ext=webm]+bestaudio[ext=m4a]/best[height<=720][ext=webm]/best[height<=720]", false},
		{"worst", "MP4", "worstvideo[ext=mp4]+worstaudio[ext=m4a]/worst[ext=mp4]/worst", false},
		{"ultra", "mp4", "", true},
		{"best", "mp4]/best", "", true},
		{"best", "a", "", true},
	}

	for _, tt := range tests {
		got, err := FormatSelector(tt.quality, tt.container)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidOption) {
				t.Errorf("FormatSelector(%q, %q) error = %v, want ErrInvalidOption", tt.quality, tt.container, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatSelector(%q, %q) = %q, %v; want %q", tt.quality, tt.container, got, err, tt.want)
		}
	}
}

func TestYouTubeService_Download_ReportedPath(t *testing.T) {
	dl := &fakeDownloader{write: []string{"mp4"}, report: true}
	svc, out, tmp := newYouTubeService(t, dl)

	file, err := svc.Download(context.Background(), VideoDownloadRequest{URL: youtubeURL})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if file.Filename != "youtube_dQw4w9WgXcQ.mp4" {
		t.Errorf("Filename = %q", file.Filename)
	}
	if file.Path != filepath.Join(out, file.Filename) || file.Size == 0 {
		t.Errorf("Path = %q, Size = %d", file.Path, file.Size)
	}
	scratch := filepath.Dir(dl.lastOpts.OutputTemplate)
	if filepath.Dir(scratch) != tmp || !strings.HasPrefix(filepath.Base(scratch), "gifgrab-") {
		t.Errorf("OutputTemplate = %q, want a scratch dir under %s", dl.lastOpts.OutputTemplate, tmp)
	}
	if filepath.Base(dl.lastOpts.OutputTemplate) != "youtube_dQw4w9WgXcQ.%(ext)s" {
		t.Errorf("OutputTemplate = %q", dl.lastOpts.OutputTemplate)
	}
	if entries := dirEntries(t, tmp); len(entries) != 0 {
		t.Errorf("scratch not cleaned up: %v", entries)
	}
	if dl.lastOpts.MergeFormat != "mp4" {
		t.Errorf("MergeFormat = %q, want mp4", dl.lastOpts.MergeFormat)
	}

	got, err := svc.ArtifactPath(file.Filename)
	if err != nil || got != file.Path {
		t.Errorf("ArtifactPath() = %q, %v", got, err)
	}
}

func TestYouTubeService_Download_NewestGlobMatch(t *testing.T) {
	dl := &fakeDownloader{write: []string{"webm", "mkv"}}
	svc, out, _ := newYouTubeService(t, dl)

	// A GIF of the same video stays untouched.
	os.MkdirAll(out, 0755)
	os.WriteFile(filepath.Join(out, "youtube_dQw4w9WgXcQ.gif"), []byte("GIF89a"), 0644)

	file, err := svc.Download(context.Background(), VideoDownloadRequest{URL: youtubeURL, Quality: "worst", Format: "mkv"})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if file.Filename != "youtube_dQw4w9WgXcQ.mkv" {
		t.Errorf("Filename = %q, want the newest match", file.Filename)
	}
	if !strings.HasPrefix(dl.lastOpts.Format, "worstvideo[ext=mkv]") {
		t.Errorf("Format = %q", dl.lastOpts.Format)
	}
	if got := dirEntries(t, out); len(got) != 2 {
		t.Errorf("output dir = %v, want the gif and the mkv only", got)
	}
}

func TestYouTubeService_Download_Errors(t *testing.T) {
	tests := []struct {
		name      string
		dl        *fakeDownloader
		req       VideoDownloadRequest
		wantErr   error
		wantCalls int
	}{
		{
			name:    "not a youtube url",
			dl:      &fakeDownloader{write: []string{"mp4"}},
			req:     VideoDownloadRequest{URL: tweetURL},
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "bad quality",
			dl:      &fakeDownloader{write: []string{"mp4"}},
			req:     VideoDownloadRequest{URL: youtubeURL, Quality: "8k"},
			wantErr: domain.ErrInvalidOption,
		},
		{
			name:      "extractor failure",
			dl:        &fakeDownloader{err: errors.New("yt-dlp: exit status 1"), partial: true},
			req:       VideoDownloadRequest{URL: youtubeURL},
			wantErr:   domain.ErrFetchFailed,
			wantCalls: 1,
		},
		{
			name:      "nothing written",
			dl:        &fakeDownloader{},
			req:       VideoDownloadRequest{URL: youtubeURL},
			wantErr:   domain.ErrVideoFetchFailed,
			wantCalls: 1,
		},
		{
			name:      "only partial file",
			dl:        &fakeDownloader{write: []string{"mp4.part"}},
			req:       VideoDownloadRequest{URL: youtubeURL},
			wantErr:   domain.ErrVideoFetchFailed,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, out, tmp := newYouTubeService(t, tt.dl)

			_, err := svc.Download(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
			}
			if entries := dirEntries(t, out); len(entries) != 0 {
				t.Errorf("output dir after failure = %v, want empty", entries)
			}
			if entries := dirEntries(t, tmp); len(entries) != 0 {
				t.Errorf("scratch not cleaned up: %v", entries)
			}
			if tt.dl.calls != tt.wantCalls {
				t.Errorf("extractor calls = %d, want %d", tt.dl.calls, tt.wantCalls)
			}
		})
	}
}
