// Package artifacts resolves and validates published model source code.
package artifacts

// ExecClass declares how long an artifact is expected to run. It drives
// the default timeout lookup in the runner; it never hardcodes artifact
// names into the execution path.
type ExecClass string

const (
	// ExecClassStandard covers ordinary, short-lived calls.
	ExecClassStandard ExecClass = "standard"
	// ExecClassHeavy covers full-dataset analysis and other long-running calls.
	ExecClassHeavy ExecClass = "heavy"
)

// Artifact is a discovered, named unit of executable source code.
type Artifact struct {
	// ID is the artifact reference (filename without extension).
	ID string `json:"id"`
	// Path is the absolute path to the source file. Empty for inline artifacts.
	Path string `json:"path,omitempty"`
	// InlineSource holds the source text for artifacts published without a file.
	// Exactly one of Path and InlineSource is populated.
	InlineSource string `json:"-"`
	// Class is the declared execution class.
	Class ExecClass `json:"class"`
	// TimeoutSeconds overrides the class default timeout (optional).
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
	// MemoryMB overrides the default memory ceiling (optional).
	MemoryMB int `json:"memory_mb,omitempty"`
	// Description is free-form text from the manifest.
	Description string `json:"description,omitempty"`
	// HasManifest indicates whether a YAML manifest was found.
	HasManifest bool `json:"has_manifest"`
}

// LoadedArtifact is an artifact whose source has been read into a
// consistent snapshot and statically validated.
type LoadedArtifact struct {
	Artifact *Artifact
	// Source is the immutable snapshot read at load time. Execution always
	// uses this snapshot, never the file on disk.
	Source []byte
	// EntryPoints are the callable top-level function names discovered in
	// the snapshot, in source order.
	EntryPoints []string
}

// HasEntryPoint reports whether name is among the discovered entry points.
func (l *LoadedArtifact) HasEntryPoint(name string) bool {
	for _, ep := range l.EntryPoints {
		if ep == name {
			return true
		}
	}
	return false
}
