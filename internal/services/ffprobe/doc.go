// Package ffprobe inspects finished artifacts and reports the measured
// audio bitrate so the pipeline can confirm the encode landed where it
// was asked to.
package ffprobe
