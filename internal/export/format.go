package export

import (
	"errors"
	"strings"
)

// Format identifies an output document type.
type Format int

const (
	FormatPDF Format = iota
	FormatSpreadsheet
	FormatImage
)

var ErrUnknownFormat = errors.New("unknown export format")

const baseFilename = "master-report"

// ParseFormat maps a request token to a Format. An empty token selects PDF.
func ParseFormat(token string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "pdf":
		return FormatPDF, nil
	case "xlsx":
		return FormatSpreadsheet, nil
	case "jpg":
		return FormatImage, nil
	default:
		return 0, ErrUnknownFormat
	}
}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatSpreadsheet:
		return "xlsx"
	case FormatImage:
		return "jpg"
	default:
		return "unknown"
	}
}

func (f Format) Extension() string { return f.String() }

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatSpreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatImage:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Filename() string {
	return baseFilename + "." + f.Extension()
}

// Implemented reports whether Render can produce this format.
func (f Format) Implemented() bool {
	return f == FormatPDF || f == FormatSpreadsheet
}
