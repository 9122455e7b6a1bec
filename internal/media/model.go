package media

import (
	"strings"
	"time"
)

// DownloadRequest is the immutable input of one pipeline job.
type DownloadRequest struct {
	SourceURL      string
	RequestedTitle string
	Quality        Quality
}

// Title returns the requested title override when present, otherwise the
// resolved metadata title.
func (r DownloadRequest) Title(meta VideoMetadata) string {
	if title := strings.TrimSpace(r.RequestedTitle); title != "" {
		return title
	}
	return meta.Title
}

// VideoMetadata describes the upstream video as resolved by the metadata
// stage. Produced once per job and never mutated afterwards.
type VideoMetadata struct {
	Title           string
	DurationSeconds int
	ThumbnailURL    string
	AuthorName      string
	ViewCount       int64
}

// Duration returns the video length as a time.Duration.
func (m VideoMetadata) Duration() time.Duration {
	return time.Duration(m.DurationSeconds) * time.Second
}

// ArtifactDescriptor is the terminal success value of a job. Ownership
// transfers to the persistence sink and the HTTP response; the pipeline
// does not retain it.
type ArtifactDescriptor struct {
	FileName            string
	FilePath            string
	FileSizeBytes       int64
	Title               string
	RequestedQuality    Quality
	MeasuredBitrateKbps int // 0 when the advisory probe did not run
	ExpiresAt           time.Time
}

// DownloadPath returns the stable relative path the artifact is served
// under.
func (d ArtifactDescriptor) DownloadPath() string {
	return "/downloads/" + d.FileName
}
