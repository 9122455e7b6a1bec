package extractor

import (
	"errors"

	"github.com/kkdai/youtube/v2"

	"audiopress/internal/media"
)

// ErrNoAudioVariant reports a format list without a single usable
// audio-only variant.
var ErrNoAudioVariant = errors.New("no audio variant available")

// thresholds in kbps for the two quality tiers
const (
	lowCeiling = 128
	highFloor  = 128
)

// variantKbps returns the effective bitrate of a format in kbps. The
// average figure is preferred when the site reports one.
func variantKbps(format *youtube.Format) int {
	if format.AverageBitrate > 0 {
		return format.AverageBitrate / 1000
	}
	return format.Bitrate / 1000
}

// audioVariants filters the list down to audio-only formats with at
// least one channel, preserving order.
func audioVariants(formats youtube.FormatList) []*youtube.Format {
	audio := formats.Type("audio").WithAudioChannels()
	variants := make([]*youtube.Format, 0, len(audio))
	for i := range audio {
		variants = append(variants, &audio[i])
	}
	return variants
}

// SelectAudioVariant picks the stream to download for a quality tier.
// The 128 tier takes the cheapest variant that still fits under the
// target, falling back to the cheapest overall; the 320 tier takes the
// richest variant at or above 128 kbps, falling back to the first
// listed. Both picks are deterministic for a fixed format list.
func SelectAudioVariant(formats youtube.FormatList, quality media.Quality) (*youtube.Format, error) {
	variants := audioVariants(formats)
	if len(variants) == 0 {
		return nil, ErrNoAudioVariant
	}

	switch quality {
	case media.Quality128:
		if pick := lowestWithin(variants, lowCeiling); pick != nil {
			return pick, nil
		}
		return lowestOverall(variants), nil
	case media.Quality320:
		if pick := highestAtLeast(variants, highFloor); pick != nil {
			return pick, nil
		}
		return variants[0], nil
	default:
		return nil, ErrNoAudioVariant
	}
}

func lowestWithin(variants []*youtube.Format, ceiling int) *youtube.Format {
	var pick *youtube.Format
	for _, v := range variants {
		kbps := variantKbps(v)
		if kbps == 0 || kbps > ceiling {
			continue
		}
		if pick == nil || kbps < variantKbps(pick) {
			pick = v
		}
	}
	return pick
}

func lowestOverall(variants []*youtube.Format) *youtube.Format {
	pick := variants[0]
	for _, v := range variants[1:] {
		if variantKbps(v) < variantKbps(pick) {
			pick = v
		}
	}
	return pick
}

func highestAtLeast(variants []*youtube.Format, floor int) *youtube.Format {
	var pick *youtube.Format
	for _, v := range variants {
		kbps := variantKbps(v)
		if kbps < floor {
			continue
		}
		if pick == nil || kbps > variantKbps(pick) {
			pick = v
		}
	}
	return pick
}
