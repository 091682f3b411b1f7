package runner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultSentinel prefixes the single structured result line the harness
// writes to stdout. Everything else the artifact prints is side-channel
// output and is never parsed as the result.
const ResultSentinel = "__MODELBAY_RESULT__"

// childResult is the structured payload the harness emits.
type childResult struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value"`
	Error *string         `json:"error"`
}

// extractResult scans captured stdout for the sentinel line, searching
// from the end so artifact prints that happen to contain the sentinel
// earlier cannot shadow the real result. It returns the parsed payload
// and the remaining stdout text. A present-but-unparsable payload is
// reported as an error; a missing sentinel is reported via found=false.
func extractResult(stdout string) (result *childResult, rest string, found bool, err error) {
	lines := strings.Split(stdout, "\n")

	idx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], ResultSentinel) {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil, stdout, false, nil
	}

	payload := strings.TrimPrefix(lines[idx], ResultSentinel)
	rest = strings.Join(append(append([]string{}, lines[:idx]...), lines[idx+1:]...), "\n")
	rest = strings.TrimSuffix(rest, "\n")

	var parsed childResult
	if jsonErr := json.Unmarshal([]byte(payload), &parsed); jsonErr != nil {
		return nil, rest, true, fmt.Errorf("decoding result payload: %w", jsonErr)
	}

	return &parsed, rest, true, nil
}

// cappedWriter buffers up to max bytes and silently drops the rest,
// recording that truncation happened.
type cappedWriter struct {
	buf       strings.Builder
	max       int
	truncated bool
}

func newCappedWriter(max int) *cappedWriter {
	return &cappedWriter{max: max}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *cappedWriter) String() string {
	if w.truncated {
		return w.buf.String() + "\n... [output truncated]"
	}
	return w.buf.String()
}
