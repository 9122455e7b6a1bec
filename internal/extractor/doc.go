// Package extractor obtains the audio payload for a resolved video. It
// tries an ordered chain of strategies: a quality-targeted stream pick,
// a generic best-audio pick, and finally the external tool producing a
// finished MP3. The first strategy that lands a non-empty file wins.
package extractor
