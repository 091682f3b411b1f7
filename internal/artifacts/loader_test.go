package artifacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}

	registry, err := NewRegistry(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, registry.Discover())

	// Entry-point discovery and ref validation are static; the syntax
	// check is exercised separately where an interpreter exists.
	return NewLoader(registry, "")
}

func TestLoaderLoad(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"report.py": `
import json

def generate(period="1mo"):
    return {"period": period}

async def generate_async():
    return None

def _internal():
    pass

class Helper:
    def method(self):
        pass
`,
	})

	loaded, err := loader.Load(context.Background(), "report")
	require.NoError(t, err)

	// Private and nested definitions are not entry points.
	require.Equal(t, []string{"generate", "generate_async"}, loaded.EntryPoints)
	require.True(t, loaded.HasEntryPoint("generate"))
	require.False(t, loaded.HasEntryPoint("_internal"))
	require.False(t, loaded.HasEntryPoint("method"))
}

func TestLoaderUnknownArtifact(t *testing.T) {
	loader := newTestLoader(t, nil)

	_, err := loader.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLoaderRejectsTraversal(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"report.py": "def generate():\n    pass\n",
	})

	refs := []string{
		"",
		"../report",
		"../../etc/passwd",
		"/etc/passwd",
		"a/../../b",
		"..\\secrets",
		"dir\\..\\..\\escape",
	}

	for _, ref := range refs {
		_, err := loader.Load(context.Background(), ref)
		require.ErrorIs(t, err, ErrArtifactInvalid, "ref %q should be rejected", ref)
	}
}

func TestLoaderNoEntryPoints(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"constants.py": "THRESHOLD = 0.85\n_cache = {}\n",
	})

	_, err := loader.Load(context.Background(), "constants")
	require.ErrorIs(t, err, ErrArtifactInvalid)
	require.Contains(t, err.Error(), "no callable entry points")
}

func TestResolveEntryPoint(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"report.py": "def generate():\n    pass\n\ndef summarize():\n    pass\n",
	})

	loaded, err := loader.ResolveEntryPoint(context.Background(), "report", "generate")
	require.NoError(t, err)
	require.Equal(t, "report", loaded.Artifact.ID)

	_, err = loader.ResolveEntryPoint(context.Background(), "report", "analyze")
	require.ErrorIs(t, err, ErrArtifactInvalid)
	// The error names what IS callable so the caller can fix the request.
	require.Contains(t, err.Error(), "generate")
	require.Contains(t, err.Error(), "summarize")
}

func TestLoaderInlineArtifact(t *testing.T) {
	registry, err := NewRegistry(t.TempDir(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, registry.RegisterInline("probe", "def ping():\n    return 'pong'\n", ExecClassStandard))

	loader := NewLoader(registry, "")
	loaded, err := loader.Load(context.Background(), "probe")
	require.NoError(t, err)
	require.Equal(t, []string{"ping"}, loaded.EntryPoints)
}

func TestLoaderSnapshotIsolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.py", "def generate():\n    return 1\n")

	registry, err := NewRegistry(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, registry.Discover())
	loader := NewLoader(registry, "")

	loaded, err := loader.Load(context.Background(), "report")
	require.NoError(t, err)
	before := string(loaded.Source)

	// Overwriting the file must not change an already loaded snapshot.
	writeFile(t, dir, "report.py", "def generate():\n    return 2\n")
	require.Equal(t, before, string(loaded.Source))
}

func TestDiscoverEntryPointsDedup(t *testing.T) {
	source := []byte("def run():\n    pass\n\ndef run():\n    pass\n")
	require.Equal(t, []string{"run"}, DiscoverEntryPoints(source))
}
