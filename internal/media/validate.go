package media

import (
	"net/url"
	"regexp"
	"strings"

	"audiopress/internal/services"
)

var videoIDPattern = regexp.MustCompile(`^[\w-]{11}$`)

var videoHosts = map[string]struct{}{
	"youtu.be":          {},
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

// ValidateRequest applies the quality policy to a download request: URL
// shape, playlist rejection, and quality token. Pure function, no I/O.
// Checks run in declaration order and the first failure wins.
func ValidateRequest(req DownloadRequest) error {
	raw := strings.TrimSpace(req.SourceURL)
	if raw == "" {
		return services.Wrap(services.ErrValidation, "validate", "url", "video URL is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil || !isVideoHost(parsed) {
		return services.Wrap(services.ErrValidation, "validate", "url", "not a recognized video URL", nil)
	}
	if isPlaylistURL(parsed) {
		return services.Wrap(services.ErrPlaylist, "validate", "url", "playlist URLs are not supported", nil)
	}
	if !videoIDPattern.MatchString(videoIDFromURL(parsed)) {
		return services.Wrap(services.ErrValidation, "validate", "url", "not a recognized video URL", nil)
	}
	if !req.Quality.Valid() {
		return services.Wrap(services.ErrValidation, "validate", "quality", "quality must be 128 or 320", nil)
	}
	return nil
}

// ExtractVideoID returns the eleven-character video identifier, or "" when
// the URL does not denote a single video.
func ExtractVideoID(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	id := videoIDFromURL(parsed)
	if videoIDPattern.MatchString(id) {
		return id
	}
	return ""
}

func isVideoHost(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, ok := videoHosts[strings.ToLower(u.Hostname())]
	return ok
}

func videoIDFromURL(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	path := strings.Trim(u.EscapedPath(), "/")
	if host == "youtu.be" {
		return path
	}
	if path == "watch" {
		return u.Query().Get("v")
	}
	for _, prefix := range []string{"shorts/", "live/", "embed/", "v/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			return rest
		}
	}
	return ""
}

func isPlaylistURL(u *url.URL) bool {
	if strings.HasPrefix(strings.Trim(u.EscapedPath(), "/"), "playlist") {
		return true
	}
	return u.Query().Get("list") != ""
}
