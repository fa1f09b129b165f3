// Package catalog holds the per-operation input and output formats and
// validates selected files against them.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fileforge/internal/domain"
)

// SameAsInput is the wire marker for operations whose output keeps the
// input format.
const SameAsInput = "same_as_input"

// Entry describes the formats one operation accepts and offers.
type Entry struct {
	Input         []string
	Output        []string
	SameAsInput   bool
	DefaultOutput string
	// Params carries the service's control hints verbatim; the client does not
	// interpret them.
	Params json.RawMessage
}

type wireEntry struct {
	Input         []string        `json:"input"`
	Output        json.RawMessage `json:"output,omitempty"`
	DefaultOutput string          `json:"default_output,omitempty"`
	Params        json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON accepts output as a list, as "same_as_input", or omitted.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entry{
		Input:         normalizeList(w.Input, true),
		DefaultOutput: normalizeExt(w.DefaultOutput),
		Params:        w.Params,
	}
	raw := bytes.TrimSpace(w.Output)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var marker string
		if err := json.Unmarshal(raw, &marker); err != nil {
			return err
		}
		if marker != SameAsInput {
			return fmt.Errorf("catalog: unexpected output marker %q", marker)
		}
		e.SameAsInput = true
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("catalog: decode output list: %w", err)
	}
	e.Output = normalizeList(list, false)
	return nil
}

// MarshalJSON writes the same shape the service serves.
func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{
		Input:         e.Input,
		DefaultOutput: e.DefaultOutput,
		Params:        e.Params,
	}
	var err error
	switch {
	case e.SameAsInput:
		w.Output, err = json.Marshal(SameAsInput)
	case len(e.Output) > 0:
		w.Output, err = json.Marshal(e.Output)
	}
	if err != nil {
		return nil, err
	}
	if w.Input == nil {
		w.Input = []string{}
	}
	return json.Marshal(w)
}

// Accepts reports whether ext (without the dot) is an accepted input.
func (e Entry) Accepts(ext string) bool {
	ext = normalizeExt(ext)
	for _, in := range e.Input {
		if in == ext {
			return true
		}
	}
	return false
}

// Offers reports whether ext is a valid output. Same-as-input operations
// accept any valid input extension.
func (e Entry) Offers(ext string) bool {
	ext = normalizeExt(ext)
	if e.SameAsInput || len(e.Output) == 0 {
		return e.Accepts(ext)
	}
	for _, out := range e.Output {
		if out == ext {
			return true
		}
	}
	return false
}

// OutputChoices returns the list a format selector should offer; nil when
// the output follows the input.
func (e Entry) OutputChoices() []string {
	if e.SameAsInput || len(e.Output) == 0 {
		return nil
	}
	out := make([]string, len(e.Output))
	copy(out, e.Output)
	return out
}

// AcceptedText renders the accepted inputs as ".a, .b, .c".
func (e Entry) AcceptedText() string {
	parts := make([]string, len(e.Input))
	for i, in := range e.Input {
		parts[i] = "." + in
	}
	return strings.Join(parts, ", ")
}

// Catalog maps operations to their format entries.
type Catalog map[domain.Operation]Entry

// Entry returns the entry for op.
func (c Catalog) Entry(op domain.Operation) (Entry, bool) {
	e, ok := c[op]
	return e, ok
}

// Builtin returns the fallback table used when the service cannot be asked.
func Builtin() Catalog {
	imageIn := []string{"jpeg", "jpg", "png", "webp", "tiff", "tif", "gif", "avif", "heif", "heic", "bmp"}
	audioIn := []string{"mp3", "wav", "flac", "ogg", "opus", "aac", "m4a", "aiff", "wma"}
	return Catalog{
		domain.OpImageConvert: {
			Input:  imageIn,
			Output: []string{"jpeg", "png", "webp", "tiff", "gif", "avif", "heif", "bmp"},
		},
		domain.OpImageCompress: {
			Input: clone(imageIn),
		},
		domain.OpImageRemoveBG: {
			Input:         []string{"jpeg", "jpg", "png", "webp", "tiff", "tif", "bmp"},
			Output:        []string{"png", "webp"},
			DefaultOutput: "png",
		},
		domain.OpPDFCompress: {
			Input:  []string{"pdf"},
			Output: []string{"pdf"},
		},
		domain.OpAudioConvert: {
			Input:  audioIn,
			Output: []string{"mp3", "wav", "flac", "ogg", "opus", "aac", "m4a", "aiff"},
		},
		domain.OpAudioCompress: {
			Input: clone(audioIn),
		},
		domain.OpVideoCompress: {
			Input:  []string{"mp4", "mkv", "webm", "avi", "mov"},
			Output: []string{"mp4", "mkv", "webm"},
		},
	}
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// normalizeList lower-cases and strips dots. An empty entry is an explicit
// "no extension" and survives only when keepEmpty is set.
func normalizeList(in []string, keepEmpty bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normalizeExt(s); s != "" || keepEmpty {
			out = append(out, s)
		}
	}
	return out
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
