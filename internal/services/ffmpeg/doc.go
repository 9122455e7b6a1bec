// Package ffmpeg wraps the external encoder used to transcode extracted
// audio streams into constant-bitrate MP3s.
//
// The invocation pins minimum, maximum, and target bitrate to the same
// value so the output is genuinely CBR, resamples to 44.1 kHz stereo,
// strips all source metadata, and suppresses the Xing header a VBR file
// would carry. When the configured binary cannot be found, one retry with
// the bare "ffmpeg" name resolved from PATH is attempted before giving up.
package ffmpeg
