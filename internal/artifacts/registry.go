package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Manifest is the optional per-artifact YAML file published alongside
// the source (<name>.yaml next to <name>.py).
type Manifest struct {
	Class       string `yaml:"class"`
	Timeout     int    `yaml:"timeout"`
	Memory      int    `yaml:"memory"`
	Description string `yaml:"description"`
}

// Registry manages discovered artifacts.
type Registry struct {
	root      string
	include   []glob.Glob
	exclude   []glob.Glob
	artifacts map[string]*Artifact
	mu        sync.RWMutex
}

// NewRegistry creates a registry over the given artifact root. Include
// and exclude are glob patterns matched against filenames; an empty
// include list defaults to "*.py".
func NewRegistry(root string, include, exclude []string) (*Registry, error) {
	if len(include) == 0 {
		include = []string{"*.py"}
	}

	inc, err := compileGlobs(include)
	if err != nil {
		return nil, fmt.Errorf("compiling include patterns: %w", err)
	}
	exc, err := compileGlobs(exclude)
	if err != nil {
		return nil, fmt.Errorf("compiling exclude patterns: %w", err)
	}

	return &Registry{
		root:      root,
		include:   inc,
		exclude:   exc,
		artifacts: make(map[string]*Artifact),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Discover scans the artifact root and rebuilds the registry contents.
// Inline artifacts registered programmatically survive rediscovery.
func (r *Registry) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inline := make(map[string]*Artifact)
	for id, a := range r.artifacts {
		if a.Path == "" {
			inline[id] = a
		}
	}
	r.artifacts = inline

	if _, err := os.Stat(r.root); os.IsNotExist(err) {
		log.Warn().Str("path", r.root).Msg("Artifact root does not exist")
		return nil
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return fmt.Errorf("reading artifact root: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if !r.matches(name) {
			continue
		}

		artifact, err := r.parseArtifact(name)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Failed to parse artifact")
			continue
		}

		r.artifacts[artifact.ID] = artifact
		log.Debug().
			Str("id", artifact.ID).
			Str("class", string(artifact.Class)).
			Bool("has_manifest", artifact.HasManifest).
			Msg("Discovered artifact")
	}

	log.Info().Int("count", len(r.artifacts)).Msg("Artifacts discovered")
	return nil
}

func (r *Registry) matches(name string) bool {
	for _, g := range r.exclude {
		if g.Match(name) {
			return false
		}
	}
	for _, g := range r.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (r *Registry) parseArtifact(filename string) (*Artifact, error) {
	ext := filepath.Ext(filename)
	id := strings.TrimSuffix(filename, ext)

	artifact := &Artifact{
		ID:    id,
		Path:  filepath.Join(r.root, filename),
		Class: ExecClassStandard,
	}

	manifestPath := filepath.Join(r.root, id+".yaml")
	if _, err := os.Stat(manifestPath); err == nil {
		if err := r.applyManifest(artifact, manifestPath); err != nil {
			return nil, fmt.Errorf("loading manifest: %w", err)
		}
		artifact.HasManifest = true
	}

	return artifact, nil
}

func (r *Registry) applyManifest(artifact *Artifact, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	switch manifest.Class {
	case "", string(ExecClassStandard):
		artifact.Class = ExecClassStandard
	case string(ExecClassHeavy):
		artifact.Class = ExecClassHeavy
	default:
		return fmt.Errorf("unknown execution class %q", manifest.Class)
	}

	if manifest.Timeout > 0 {
		artifact.TimeoutSeconds = manifest.Timeout
	}
	if manifest.Memory > 0 {
		artifact.MemoryMB = manifest.Memory
	}
	artifact.Description = manifest.Description

	return nil
}

// RegisterInline registers an artifact published as raw source text.
func (r *Registry) RegisterInline(id, source string, class ExecClass) error {
	if id == "" {
		return &InvalidError{Ref: id, Reason: "empty artifact reference"}
	}
	if source == "" {
		return &InvalidError{Ref: id, Reason: "empty inline source"}
	}
	if class == "" {
		class = ExecClassStandard
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.artifacts[id] = &Artifact{
		ID:           id,
		InlineSource: source,
		Class:        class,
	}
	return nil
}

// Get returns an artifact by reference.
func (r *Registry) Get(id string) (*Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.artifacts[id]
	return a, ok
}

// List returns all known artifacts.
func (r *Registry) List() []*Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Artifact, 0, len(r.artifacts))
	for _, a := range r.artifacts {
		result = append(result, a)
	}
	return result
}

// Count returns the number of known artifacts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}

// Reload rediscovers all artifacts.
func (r *Registry) Reload() error {
	return r.Discover()
}

// Root returns the configured artifact root.
func (r *Registry) Root() string {
	return r.root
}
