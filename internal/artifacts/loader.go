package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// entryPointPattern matches top-level function definitions in an artifact
// snapshot. Indented (nested) definitions deliberately do not match.
var entryPointPattern = regexp.MustCompile(`(?m)^(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// Loader resolves artifact references into validated, executable snapshots.
type Loader struct {
	registry  *Registry
	pythonBin string
}

// NewLoader creates a loader backed by the given registry. pythonBin is
// used for optional static syntax validation; an empty string or a
// missing interpreter downgrades that check to a no-op.
func NewLoader(registry *Registry, pythonBin string) *Loader {
	return &Loader{
		registry:  registry,
		pythonBin: pythonBin,
	}
}

// Load resolves ref to a consistent source snapshot and discovers its
// entry points. It never executes artifact code.
func (l *Loader) Load(ctx context.Context, ref string) (*LoadedArtifact, error) {
	if err := l.validateRef(ref); err != nil {
		return nil, err
	}

	artifact, ok := l.registry.Get(ref)
	if !ok {
		return nil, &NotFoundError{Ref: ref}
	}

	source, err := l.readSnapshot(artifact)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(source) {
		return nil, &InvalidError{Ref: ref, Reason: "source is not valid UTF-8"}
	}

	if err := l.checkSyntax(ctx, ref, source); err != nil {
		return nil, err
	}

	entryPoints := DiscoverEntryPoints(source)
	if len(entryPoints) == 0 {
		return nil, &InvalidError{Ref: ref, Reason: "no callable entry points found"}
	}

	return &LoadedArtifact{
		Artifact:    artifact,
		Source:      source,
		EntryPoints: entryPoints,
	}, nil
}

// ResolveEntryPoint loads ref and verifies that function is callable,
// returning an error that names the available entry points when it is not.
func (l *Loader) ResolveEntryPoint(ctx context.Context, ref, function string) (*LoadedArtifact, error) {
	loaded, err := l.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !loaded.HasEntryPoint(function) {
		return nil, &InvalidError{
			Ref: ref,
			Reason: fmt.Sprintf("function %q not found; available entry points: %s",
				function, strings.Join(loaded.EntryPoints, ", ")),
		}
	}

	return loaded, nil
}

// validateRef rejects references that could escape the artifact root.
// Nothing is read from disk until the reference passes.
func (l *Loader) validateRef(ref string) error {
	if ref == "" {
		return &InvalidError{Ref: ref, Reason: "empty artifact reference"}
	}
	if filepath.IsAbs(ref) || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "\\") {
		return &InvalidError{Ref: ref, Reason: "absolute artifact references are not allowed"}
	}
	// Normalize Windows-style separators before inspecting segments.
	normalized := strings.ReplaceAll(ref, "\\", "/")
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return &InvalidError{Ref: ref, Reason: "artifact reference escapes the artifact root"}
		}
	}
	return nil
}

// readSnapshot reads the artifact source exactly once. Later file writes
// cannot affect a run that already loaded.
func (l *Loader) readSnapshot(artifact *Artifact) ([]byte, error) {
	if artifact.Path == "" {
		return []byte(artifact.InlineSource), nil
	}

	root, err := filepath.Abs(l.registry.Root())
	if err != nil {
		return nil, fmt.Errorf("resolving artifact root: %w", err)
	}

	abs, err := filepath.Abs(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact path: %w", err)
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return nil, &InvalidError{Ref: artifact.ID, Reason: "artifact path resolves outside the artifact root"}
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Ref: artifact.ID}
		}
		return nil, fmt.Errorf("reading artifact source: %w", err)
	}

	return source, nil
}

// checkSyntax statically parses the snapshot with the configured
// interpreter's AST module. The artifact itself is never imported or
// executed. A missing interpreter is a soft no-op.
func (l *Loader) checkSyntax(ctx context.Context, ref string, source []byte) error {
	if l.pythonBin == "" {
		return nil
	}
	if _, err := exec.LookPath(l.pythonBin); err != nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, l.pythonBin, "-c",
		"import ast, sys; ast.parse(sys.stdin.read())")
	cmd.Stdin = bytes.NewReader(source)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &InvalidError{
				Ref:    ref,
				Reason: "syntax error: " + strings.TrimSpace(stderr.String()),
			}
		}
		// Interpreter failed to start at all; syntax stays unverified.
		return nil
	}

	return nil
}

// DiscoverEntryPoints scans a source snapshot for top-level function
// definitions. Names with a leading underscore are treated as private.
func DiscoverEntryPoints(source []byte) []string {
	matches := entryPointPattern.FindAllSubmatch(source, -1)

	seen := make(map[string]bool, len(matches))
	entryPoints := make([]string, 0, len(matches))
	for _, m := range matches {
		name := string(m[1])
		if strings.HasPrefix(name, "_") || seen[name] {
			continue
		}
		seen[name] = true
		entryPoints = append(entryPoints, name)
	}

	return entryPoints
}
