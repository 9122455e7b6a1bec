// Package media defines the value types that flow through the download
// pipeline and the pure validation rules applied at request ingress.
//
// The types here are immutable by convention: a DownloadRequest is created
// once at the API boundary, VideoMetadata is produced once by the resolver,
// and an ArtifactDescriptor is the terminal success value handed to the
// persistence sink and the HTTP response. No type in this package performs
// I/O.
package media
