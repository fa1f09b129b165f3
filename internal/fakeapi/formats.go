package fakeapi

import (
	"encoding/json"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
)

// paramHints mirrors the control hints the real service publishes.
var paramHints = map[domain.Operation]string{
	domain.OpImageCompress: `{"quality":{"type":"range","min":1,"max":100,"default":80},"lossless":{"type":"bool","default":false}}`,
	domain.OpPDFCompress:   `{"image_dpi":{"type":"select","options":[72,150,300,600],"default":150},"image_quality":{"type":"range","min":1,"max":100,"default":75}}`,
	domain.OpAudioCompress: `{"quality":{"type":"range","min":1,"max":100,"default":70},"lossless":{"type":"bool","default":false}}`,
	domain.OpVideoCompress: `{"quality":{"type":"range","min":1,"max":100,"default":65}}`,
}

// Catalog is the format table the fake service publishes: the built-in
// formats with compress operations marked same-as-input and the parameter
// hints attached.
func Catalog() catalog.Catalog {
	c := catalog.Builtin()
	for op, entry := range c {
		if len(entry.Output) == 0 {
			entry.SameAsInput = true
		}
		if hint, ok := paramHints[op]; ok {
			entry.Params = json.RawMessage(hint)
		}
		c[op] = entry
	}
	return c
}
