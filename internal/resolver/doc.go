// Package resolver turns a validated watch URL into video metadata. It
// walks an ordered list of client profiles against the in-process
// extraction library and falls back to the external tool when every
// profile is refused, so one blocked fingerprint never sinks a request.
package resolver
