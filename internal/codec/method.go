package codec

import (
	"fmt"
	"strings"
)

// Method names a compression method. Each format accepts a subset; see
// MethodsFor.
type Method int

const (
	// MethodDefault selects the format's default method.
	MethodDefault Method = iota
	Huffman
	DCT
	Arithmetic
	Deflate
	VP8
	VP8Lossless
	LZW
)

var methodNames = [...]string{
	MethodDefault: "DEFAULT",
	Huffman:       "HUFFMAN",
	DCT:           "DCT",
	Arithmetic:    "ARITHMETIC",
	Deflate:       "DEFLATE",
	VP8:           "WEBP_VP8",
	VP8Lossless:   "WEBP_VP8L",
	LZW:           "LZW",
}

var methodAliases = map[string]Method{
	"VP8":           VP8,
	"VP8L":          VP8Lossless,
	"VP8_LOSSLESS":  VP8Lossless,
	"WEBP_LOSSLESS": VP8Lossless,
}

var formatMethods = map[Format][]Method{
	JPEG: {Huffman, DCT, Arithmetic},
	PNG:  {Deflate},
	WEBP: {VP8, VP8Lossless},
	GIF:  {LZW},
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod accepts the canonical names and a few WebP aliases. Names the
// engine has no encoder for are rejected with ErrUnsupportedMethod.
func ParseMethod(s string) (Method, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	if name == "" {
		return MethodDefault, nil
	}
	for i, n := range methodNames {
		if n == name {
			return Method(i), nil
		}
	}
	if m, ok := methodAliases[name]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

func MethodsFor(f Format) []Method {
	return append([]Method(nil), formatMethods[f]...)
}

func DefaultMethod(f Format) Method {
	if methods := formatMethods[f]; len(methods) > 0 {
		return methods[0]
	}
	return MethodDefault
}

func Allowed(f Format, m Method) bool {
	for _, candidate := range formatMethods[f] {
		if candidate == m {
			return true
		}
	}
	return false
}

// ResolveMethod coerces a method that the format does not accept to the
// format's default method.
func ResolveMethod(f Format, m Method) Method {
	if Allowed(f, m) {
		return m
	}
	return DefaultMethod(f)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
