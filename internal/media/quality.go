package media

import (
	"fmt"
	"strings"
)

// Quality identifies one of the two MP3 bitrates the pipeline produces.
type Quality string

const (
	Quality128 Quality = "128"
	Quality320 Quality = "320"
)

var allQualities = []Quality{Quality128, Quality320}

// ParseQuality maps a request token to a Quality. Only the exact tokens
// "128" and "320" are accepted; anything else is an error.
func ParseQuality(token string) (Quality, error) {
	switch Quality(strings.TrimSpace(token)) {
	case Quality128:
		return Quality128, nil
	case Quality320:
		return Quality320, nil
	default:
		return "", fmt.Errorf("unsupported quality %q (valid: 128, 320)", token)
	}
}

// BitrateKbps returns the target bitrate in kilobits per second.
func (q Quality) BitrateKbps() int {
	if q == Quality320 {
		return 320
	}
	return 128
}

// Valid reports whether q is one of the supported qualities.
func (q Quality) Valid() bool {
	for _, candidate := range allQualities {
		if q == candidate {
			return true
		}
	}
	return false
}

func (q Quality) String() string {
	return string(q)
}
