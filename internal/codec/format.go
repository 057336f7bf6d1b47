package codec

import (
	"fmt"
	"path"
	"strings"
)

// Format is the closed set of output formats.
type Format int

const (
	JPEG Format = iota
	PNG
	WEBP
	GIF
)

var formatNames = [...]string{
	JPEG: "JPEG",
	PNG:  "PNG",
	WEBP: "WEBP",
	GIF:  "GIF",
}

func Formats() []Format {
	return []Format{JPEG, PNG, WEBP, GIF}
}

func (f Format) valid() bool {
	return f >= 0 && int(f) < len(formatNames)
}

func (f Format) String() string {
	if !f.valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

func (f Format) MimeType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case WEBP:
		return "image/webp"
	case GIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension without a dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return "jpg"
	case PNG:
		return "png"
	case WEBP:
		return "webp"
	case GIF:
		return "gif"
	default:
		return "bin"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	case "gif":
		return GIF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromFilename maps the file extension to a format, defaulting to JPEG
// when the extension is missing or unknown.
func FormatFromFilename(name string) Format {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(name)), ".")
	f, err := ParseFormat(ext)
	if err != nil {
		return JPEG
	}
	return f
}

// ResolveFormat returns the explicit format when set, otherwise the format
// derived from the source file name.
func ResolveFormat(explicit *Format, sourceName string) Format {
	if explicit != nil {
		return *explicit
	}
	return FormatFromFilename(sourceName)
}

func (f Format) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return []byte(formatNames[f]), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
