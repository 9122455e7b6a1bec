// Package ytdlp wraps the external extraction tools (yt-dlp and its legacy
// youtube-dl fallback) behind a client the resolver and extractor share.
//
// Both tools speak the same flag dialect for the two operations the
// pipeline needs: dumping video metadata as JSON and extracting audio
// directly into the target codec. The client is constructed with whichever
// tool discovery selected, so adding a third tool requires no new code
// here.
package ytdlp
