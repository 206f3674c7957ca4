package model

// Artifact is the output of a compiler: either the real compiled body or a
// fallback body synthesized after a compile failure.
type Artifact struct {
	Body        []byte
	ContentType string
	Source      Path
	Fingerprint Fingerprint // cache key: file-system fingerprint plus compiler settings
	Fallback    bool        // Body is an error banner, not compiler output
	Cached      bool        // served from the artifact store
}
