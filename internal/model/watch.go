package model

// WatchEvent reports the outcome of one (re)compile triggered by the watcher.
type WatchEvent struct {
	Entry    Path
	Artifact Artifact
	Output   Path // where the artifact was written, empty when not written
	Err      error
	Changed  []Path // empty for the initial compile
}

// Initial reports whether the event comes from the first compile of Entry.
func (e WatchEvent) Initial() bool {
	return len(e.Changed) == 0
}
