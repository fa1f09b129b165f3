// Package params models the option controls shown for an operation and
// snapshots them into the parameter bag sent with a job.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
)

// Kind is the widget type of a control.
type Kind int

const (
	KindSelect Kind = iota
	KindRange
	KindCheckbox
)

// Control is one rendered option. Value holds the raw text of selects and
// ranges; Checked holds checkbox state.
type Control struct {
	Key     string
	Label   string
	Kind    Kind
	Value   string
	Checked bool
	Options []string
	Min     int
	Max     int
	Numeric bool
}

var qualityDefaults = map[domain.Operation]int{
	domain.OpImageCompress: 80,
	domain.OpAudioCompress: 70,
	domain.OpVideoCompress: 65,
}

var dpiOptions = []string{"72", "150", "300", "600"}

// Render returns the controls shown for op, populated with their defaults.
func Render(op domain.Operation, entry catalog.Entry) []Control {
	var controls []Control
	switch op {
	case domain.OpImageConvert, domain.OpAudioConvert:
		controls = appendFormatSelect(controls, entry.OutputChoices(), "")
	case domain.OpImageCompress, domain.OpAudioCompress:
		controls = append(controls, qualityRange(op), losslessCheckbox())
	case domain.OpImageRemoveBG:
		outputs := entry.OutputChoices()
		if len(outputs) == 0 {
			outputs = []string{"png", "webp"}
		}
		def := entry.DefaultOutput
		if def == "" {
			def = "png"
		}
		controls = appendFormatSelect(controls, outputs, def)
	case domain.OpPDFCompress:
		controls = append(controls,
			Control{
				Key:     domain.ParamImageDPI,
				Label:   "Image DPI in PDF",
				Kind:    KindSelect,
				Value:   "150",
				Options: dpiOptions,
				Numeric: true,
			},
			Control{
				Key:     domain.ParamImageQuality,
				Label:   "Image Quality in PDF",
				Kind:    KindRange,
				Value:   "75",
				Min:     1,
				Max:     100,
				Numeric: true,
			},
		)
	case domain.OpVideoCompress:
		controls = appendFormatSelect(controls, entry.OutputChoices(), "")
		controls = append(controls, qualityRange(op))
	}
	return controls
}

func appendFormatSelect(controls []Control, outputs []string, def string) []Control {
	if len(outputs) == 0 {
		return controls
	}
	if def == "" || !contains(outputs, def) {
		def = outputs[0]
	}
	return append(controls, Control{
		Key:     domain.ParamOutputFormat,
		Label:   "Output Format",
		Kind:    KindSelect,
		Value:   def,
		Options: outputs,
	})
}

func qualityRange(op domain.Operation) Control {
	def, ok := qualityDefaults[op]
	if !ok {
		def = 75
	}
	return Control{
		Key:     domain.ParamQuality,
		Label:   "Quality",
		Kind:    KindRange,
		Value:   strconv.Itoa(def),
		Min:     1,
		Max:     100,
		Numeric: true,
	}
}

func losslessCheckbox() Control {
	return Control{
		Key:   domain.ParamLossless,
		Label: "Lossless compression (if supported by format)",
		Kind:  KindCheckbox,
	}
}

// Set changes the control named key the way a user interaction would,
// rejecting values the widget could not hold.
func Set(controls []Control, key, raw string) error {
	for i := range controls {
		c := &controls[i]
		if c.Key != key {
			continue
		}
		raw = strings.TrimSpace(raw)
		switch c.Kind {
		case KindCheckbox:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("params: %s expects true or false, got %q", key, raw)
			}
			c.Checked = b
		case KindRange:
			v, err := strconv.Atoi(raw)
			if err != nil || v < c.Min || v > c.Max {
				return fmt.Errorf("params: %s must be between %d and %d", key, c.Min, c.Max)
			}
			c.Value = strconv.Itoa(v)
		case KindSelect:
			v := strings.ToLower(strings.TrimPrefix(raw, "."))
			if !contains(c.Options, v) {
				return fmt.Errorf("params: %s must be one of %s", key, strings.Join(c.Options, ", "))
			}
			c.Value = v
		}
		return nil
	}
	return fmt.Errorf("params: %s is not an option here", key)
}

// Collect snapshots the rendered controls into a fresh bag. Controls that
// were not rendered contribute no key.
func Collect(op domain.Operation, controls []Control) (domain.ParameterBag, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("params: %w: %q", domain.ErrUnknownOperation, op)
	}
	bag := make(domain.ParameterBag, len(controls))
	for _, c := range controls {
		switch {
		case c.Kind == KindCheckbox:
			bag[c.Key] = domain.BoolValue(c.Checked)
		case c.Numeric:
			v, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 0)
			if err != nil {
				return nil, fmt.Errorf("params: %s is not a number: %q", c.Key, c.Value)
			}
			bag[c.Key] = domain.IntValue(int(v))
		default:
			bag[c.Key] = domain.StringValue(c.Value)
		}
	}
	return bag, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
