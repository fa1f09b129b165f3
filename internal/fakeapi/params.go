package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
)

// JobParams are the validated settings a job runs with.
type JobParams struct {
	OutputFormat string
	Quality      int
	Lossless     bool
	ImageDPI     int
	ImageQuality int
}

var validDPI = map[int]bool{72: true, 150: true, 300: true, 600: true}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return ext
	}
}

// parseParams validates the form fields for op and fills the per-operation
// defaults.
func parseParams(r *http.Request, op domain.Operation, entry catalog.Entry, inputExt string) (JobParams, error) {
	var p JobParams
	p.OutputFormat = normalizeExt(r.FormValue(domain.ParamOutputFormat))

	switch op {
	case domain.OpImageConvert, domain.OpAudioConvert:
		if p.OutputFormat == "" {
			return p, fmt.Errorf("output_format is required for %s", op)
		}
		if !entry.Offers(p.OutputFormat) {
			return p, fmt.Errorf("unsupported output format: %s", p.OutputFormat)
		}
	case domain.OpImageRemoveBG:
		if p.OutputFormat == "" {
			p.OutputFormat = "png"
		}
		if !entry.Offers(p.OutputFormat) {
			return p, fmt.Errorf("background removal supports png or webp output")
		}
	case domain.OpImageCompress, domain.OpAudioCompress:
		if p.OutputFormat == "" {
			p.OutputFormat = inputExt
		}
	case domain.OpVideoCompress:
		if p.OutputFormat == "" {
			p.OutputFormat = "mp4"
			if entry.Offers(inputExt) {
				p.OutputFormat = inputExt
			}
		}
		if !entry.Offers(p.OutputFormat) {
			return p, fmt.Errorf("unsupported video output format: %s", p.OutputFormat)
		}
	case domain.OpPDFCompress:
		p.OutputFormat = "pdf"
	}

	if q := r.FormValue(domain.ParamQuality); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 || v > 100 {
			return p, fmt.Errorf("quality must be between 1 and 100")
		}
		p.Quality = v
	} else {
		switch op {
		case domain.OpImageCompress:
			p.Quality = 80
		case domain.OpAudioCompress:
			p.Quality = 70
		case domain.OpVideoCompress:
			p.Quality = 65
		}
	}

	p.Lossless = r.FormValue(domain.ParamLossless) == "true"

	if d := r.FormValue(domain.ParamImageDPI); d != "" {
		v, err := strconv.Atoi(d)
		if err != nil {
			return p, fmt.Errorf("invalid image_dpi value")
		}
		if !validDPI[v] {
			return p, fmt.Errorf("image_dpi must be 72, 150, 300, or 600")
		}
		p.ImageDPI = v
	} else if op == domain.OpPDFCompress {
		p.ImageDPI = 150
	}

	if iq := r.FormValue(domain.ParamImageQuality); iq != "" {
		v, err := strconv.Atoi(iq)
		if err != nil || v < 1 || v > 100 {
			return p, fmt.Errorf("image_quality must be between 1 and 100")
		}
		p.ImageQuality = v
	} else if op == domain.OpPDFCompress {
		p.ImageQuality = 75
	}

	return p, nil
}
