package api

import (
	"time"

	"audiopress/internal/media"
	"audiopress/internal/store"
)

// ConvertRequest is the POST /api/convert payload.
type ConvertRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Title   string `json:"title,omitempty"`
}

// ConvertResponse reports a finished conversion.
type ConvertResponse struct {
	Success       bool   `json:"success"`
	Title         string `json:"title"`
	FileName      string `json:"file_name"`
	DownloadURL   string `json:"download_url"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Quality       string `json:"quality"`
	BitrateKbps   int    `json:"bitrate_kbps,omitempty"`
	ExpiresAt     string `json:"expires_at"`
}

// ErrorResponse is the uniform failure payload.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MetadataResponse is the GET /api/metadata payload. IsValid is always
// true on the success path; invalid URLs take the error payload instead.
type MetadataResponse struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	ViewCount       int64  `json:"view_count,omitempty"`
	IsValid         bool   `json:"isValid"`
}

// DependencyStatus mirrors one external tool's availability.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// StatusResponse is the GET /api/status payload.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Completed    int64              `json:"completed"`
	Failed       int64              `json:"failed"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// RecentEntry is one row of GET /api/recent.
type RecentEntry struct {
	Title           string `json:"title"`
	FileName        string `json:"file_name"`
	DownloadURL     string `json:"download_url"`
	FileSizeBytes   int64  `json:"file_size_bytes"`
	Quality         string `json:"quality"`
	DurationSeconds int    `json:"duration_seconds"`
	CreatedAt       string `json:"created_at"`
	ExpiresAt       string `json:"expires_at"`
}

// RecentResponse is the GET /api/recent payload.
type RecentResponse struct {
	Items []RecentEntry `json:"items"`
}

func convertResponse(artifact media.ArtifactDescriptor) ConvertResponse {
	return ConvertResponse{
		Success:       true,
		Title:         artifact.Title,
		FileName:      artifact.FileName,
		DownloadURL:   artifact.DownloadPath(),
		FileSizeBytes: artifact.FileSizeBytes,
		Quality:       string(artifact.RequestedQuality),
		BitrateKbps:   artifact.MeasuredBitrateKbps,
		ExpiresAt:     artifact.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func metadataResponse(meta media.VideoMetadata) MetadataResponse {
	return MetadataResponse{
		Title:           meta.Title,
		DurationSeconds: meta.DurationSeconds,
		ThumbnailURL:    meta.ThumbnailURL,
		AuthorName:      meta.AuthorName,
		ViewCount:       meta.ViewCount,
		IsValid:         true,
	}
}

func recentEntry(conv store.Conversion) RecentEntry {
	return RecentEntry{
		Title:           conv.Title,
		FileName:        conv.FileName,
		DownloadURL:     "/downloads/" + conv.FileName,
		FileSizeBytes:   conv.FileSizeBytes,
		Quality:         string(conv.Quality),
		DurationSeconds: conv.DurationSeconds,
		CreatedAt:       conv.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:       conv.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
