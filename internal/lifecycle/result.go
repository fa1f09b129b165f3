package lifecycle

import (
	"net/url"
	"strconv"
	"strings"
)

// Result is what a successful job exposes to the host.
type Result struct {
	JobID        string
	InputSize    int64
	OutputSize   int64
	Savings      string
	DownloadURL  string
	DownloadName string
}

// SizeDelta describes how the output size compares to the input, using the
// percentage (1 - out/in) * 100 rounded to one decimal. It returns "" when
// either size is missing.
func SizeDelta(in, out int64) string {
	if in <= 0 || out <= 0 {
		return ""
	}
	pct := (1 - float64(out)/float64(in)) * 100
	text := strconv.FormatFloat(pct, 'f', 1, 64)
	switch {
	case text == "0.0" || text == "-0.0":
		return "same size"
	case pct > 0:
		return text + "% smaller"
	default:
		return strings.TrimPrefix(text, "-") + "% larger"
	}
}

// DownloadURL is the service location of a finished job's output.
func DownloadURL(baseURL, jobID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/jobs/" + url.PathEscape(jobID) + "/download"
}

// DownloadName suggests a save name: the input's base name with the marker
// suffix and the output's extension.
func DownloadName(inputName, outputFilename string) string {
	if inputName == "" {
		inputName = "output"
	}
	base := inputName
	if i := strings.LastIndex(inputName, "."); i > 0 {
		base = inputName[:i]
	}
	// An output name without a dot contributes no extension rather than
	// being appended whole.
	ext := ""
	if i := strings.LastIndex(outputFilename, "."); i >= 0 {
		ext = outputFilename[i:]
	}
	return base + "-iloveconvertion" + ext
}
