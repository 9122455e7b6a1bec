package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the encoder binary the transcoder will execute.
//
// A configured override is honoured when it points at an executable file;
// otherwise "ffmpeg" is resolved from PATH. This mirrors the transcoder's
// own retry order so status output matches runtime behaviour.
func CheckFFmpeg(override string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Audio encoder used for MP3 transcoding",
	}

	if candidate := strings.TrimSpace(override); candidate != "" {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	ffmpegName := "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

// CheckFFprobe reports the media probe binary used for artifact
// verification. The probe is advisory, so the requirement is optional.
func CheckFFprobe(override string) Status {
	result := Status{
		Name:        "FFprobe",
		Description: "Media probe used for bitrate verification",
		Optional:    true,
	}

	candidate := strings.TrimSpace(override)
	if candidate == "" {
		candidate = "ffprobe"
	}
	if resolved, err := exec.LookPath(candidate); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}
	result.Command = candidate
	result.Detail = fmt.Sprintf("binary %q not found", candidate)
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
