package report

// Artifact is a report file written during finalize.
type Artifact struct {
	Format string `json:"format"`
	Path   string `json:"path"`
}
