package ytdlp

// Info is the subset of the yt-dlp info dictionary the pipeline reads.
type Info struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Ext        string `json:"ext"`
	VCodec     string `json:"vcodec"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	WebpageURL string `json:"webpage_url"`
	// Filename is yt-dlp's prediction of the output path.
	Filename string `json:"_filename"`

	Formats            []Format            `json:"formats"`
	Entries            []Info              `json:"entries"`
	Thumbnails         []Thumbnail         `json:"thumbnails"`
	RequestedDownloads []RequestedDownload `json:"requested_downloads"`
}

// Format is one available encoding of a media item.
type Format struct {
	FormatID string `json:"format_id"`
	URL      string `json:"url"`
	Ext      string `json:"ext"`
	VCodec   string `json:"vcodec"`
	ACodec   string `json:"acodec"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Thumbnail is a preview image. yt-dlp orders thumbnails from lowest to
// highest preference.
type Thumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RequestedDownload describes a file actually written by a download.
type RequestedDownload struct {
	Filepath string `json:"filepath"`
	Ext      string `json:"ext"`
}

// HasVideoCodec reports whether codec names a real video codec. yt-dlp uses
// "none" for audio-only or image formats.
func HasVideoCodec(codec string) bool {
	return codec != "" && codec != "none"
}

// HasVideo reports whether the info carries video. Formats are checked
// first, then entries, then the top-level codec.
func (i *Info) HasVideo() bool {
	switch {
	case len(i.Formats) > 0:
		for _, f := range i.Formats {
			if HasVideoCodec(f.VCodec) {
				return true
			}
		}
		return false
	case len(i.Entries) > 0:
		for _, e := range i.Entries {
			if HasVideoCodec(e.VCodec) {
				return true
			}
		}
		return false
	default:
		return HasVideoCodec(i.VCodec)
	}
}

// BestThumbnail returns the most preferred thumbnail URL, or "".
func (i *Info) BestThumbnail() string {
	for j := len(i.Thumbnails) - 1; j >= 0; j-- {
		if i.Thumbnails[j].URL != "" {
			return i.Thumbnails[j].URL
		}
	}
	return ""
}

// DownloadedPath returns the path of the first written file, or "".
func (i *Info) DownloadedPath() string {
	if len(i.RequestedDownloads) > 0 {
		return i.RequestedDownloads[0].Filepath
	}
	return ""
}
