package domain

import "fmt"

// Operation identifies the conversion or compression task a job performs.
type Operation string

const (
	OpImageConvert  Operation = "image_convert"
	OpImageCompress Operation = "image_compress"
	OpImageRemoveBG Operation = "image_remove_bg"
	OpPDFCompress   Operation = "pdf_compress"
	OpAudioConvert  Operation = "audio_convert"
	OpAudioCompress Operation = "audio_compress"
	OpVideoCompress Operation = "video_compress"
)

// Operations lists every supported operation in display order.
var Operations = []Operation{
	OpImageConvert,
	OpImageCompress,
	OpImageRemoveBG,
	OpPDFCompress,
	OpAudioConvert,
	OpAudioCompress,
	OpVideoCompress,
}

var operationText = map[Operation]struct{ label, action string }{
	OpImageConvert:  {"Convert Image", "Convert"},
	OpImageCompress: {"Compress Image", "Compress"},
	OpImageRemoveBG: {"Remove Background", "Remove Background"},
	OpPDFCompress:   {"Compress PDF", "Compress"},
	OpAudioConvert:  {"Convert Audio", "Convert"},
	OpAudioCompress: {"Compress Audio", "Compress"},
	OpVideoCompress: {"Compress Video", "Compress"},
}

// ParseOperation validates a wire identifier.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return op, nil
}

// Valid reports whether op is one of the supported operations.
func (op Operation) Valid() bool {
	_, ok := operationText[op]
	return ok
}

// Label is the tab title shown for the operation.
func (op Operation) Label() string {
	return operationText[op].label
}

// Action is the verb shown on the start button once a file is selected.
func (op Operation) Action() string {
	return operationText[op].action
}

func (op Operation) String() string {
	return string(op)
}
