package runner

// harnessSource is the bootstrap script executed by the child
// interpreter. It reads the call payload as JSON from stdin, applies the
// memory ceiling where the platform supports it, loads the artifact
// snapshot, invokes the requested entry point, and emits exactly one
// sentinel-prefixed result line on stdout.
const harnessSource = `import json
import sys
import traceback

SENTINEL = "__MODELBAY_RESULT__"


def _emit(ok, value, error):
    sys.stdout.flush()
    sys.stderr.flush()
    sys.stdout.write("\n" + SENTINEL + json.dumps({"ok": ok, "value": value, "error": error}))
    sys.stdout.flush()


def _apply_memory_limit(limit_bytes):
    if limit_bytes <= 0:
        return
    try:
        import resource
        resource.setrlimit(resource.RLIMIT_AS, (limit_bytes, limit_bytes))
    except Exception:
        # Platforms without RLIMIT_AS run without a ceiling.
        pass


def _main():
    payload = json.loads(sys.stdin.read())
    _apply_memory_limit(int(payload.get("memory_limit_bytes") or 0))

    import importlib.util
    spec = importlib.util.spec_from_file_location("modelbay_artifact", payload["artifact_path"])
    module = importlib.util.module_from_spec(spec)
    try:
        spec.loader.exec_module(module)
    except BaseException:
        _emit(False, None, traceback.format_exc())
        return 1

    name = payload["function"]
    fn = getattr(module, name, None)
    if not callable(fn):
        _emit(False, None, "entry point is not callable: " + name)
        return 1

    args = payload.get("args") or []
    kwargs = payload.get("kwargs") or {}
    try:
        value = fn(*args, **kwargs)
    except BaseException:
        _emit(False, None, traceback.format_exc())
        return 1

    try:
        encoded = json.dumps(value)
    except (TypeError, ValueError) as exc:
        _emit(False, None, "return value is not JSON-serializable: " + str(exc))
        return 1

    _emit(True, json.loads(encoded), None)
    return 0


if __name__ == "__main__":
    sys.exit(_main())
`

// harnessPayload is the call description serialized to the child's stdin.
type harnessPayload struct {
	ArtifactPath     string         `json:"artifact_path"`
	Function         string         `json:"function"`
	Args             []any          `json:"args"`
	Kwargs           map[string]any `json:"kwargs"`
	MemoryLimitBytes int64          `json:"memory_limit_bytes"`
}
