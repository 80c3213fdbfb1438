// Package decompose extracts the structured task plan from the raw text
// the backend streams while splitting a prompt. Parsing always runs over
// the full accumulated buffer, never a delta, so a dropped or reordered
// chunk costs nothing once the next chunk arrives.
package decompose

import "strings"

const (
	openTag  = "<task>"
	closeTag = "</task>"
)

// Result is the parsed view of the streaming buffer. When Streaming is
// true the last entry of Tasks is still being emitted.
type Result struct {
	Tasks     []string `json:"tasks"`
	Streaming bool     `json:"is_streaming"`
}

// Parse scans the buffer for complete <task>...</task> spans left to
// right, then checks for a trailing unclosed <task> marker. Empty spans
// are dropped after trimming; duplicate content is kept as-is.
func Parse(text string) Result {
	res := Result{Tasks: []string{}}

	rest := text
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			break
		}
		rest = rest[start+len(openTag):]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			break
		}
		if content := strings.TrimSpace(rest[:end]); content != "" {
			res.Tasks = append(res.Tasks, content)
		}
		rest = rest[end+len(closeTag):]
	}

	lastOpen := strings.LastIndex(text, openTag)
	lastClose := strings.LastIndex(text, closeTag)
	if lastOpen > lastClose {
		if partial := strings.TrimSpace(text[lastOpen+len(openTag):]); partial != "" {
			res.Tasks = append(res.Tasks, partial)
			res.Streaming = true
		}
	}
	return res
}
