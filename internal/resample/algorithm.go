package resample

import (
	"fmt"
	"strings"
)

// Algorithm is the closed set of resampling methods.
type Algorithm int

const (
	NearestNeighbor Algorithm = iota
	Bilinear
	Bicubic
	Lanczos
	ProgressiveBilinear
)

var algorithmNames = [...]string{
	NearestNeighbor:     "NEAREST_NEIGHBOR",
	Bilinear:            "BILINEAR",
	Bicubic:             "BICUBIC",
	Lanczos:             "LANCZOS",
	ProgressiveBilinear: "PROGRESSIVE_BILINEAR",
}

// Algorithms lists every supported algorithm in declaration order.
func Algorithms() []Algorithm {
	return []Algorithm{NearestNeighbor, Bilinear, Bicubic, Lanczos, ProgressiveBilinear}
}

func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(algorithmNames) {
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// ParseAlgorithm accepts the canonical names case-insensitively, with either
// '_' or '-' as separator.
func ParseAlgorithm(s string) (Algorithm, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	for i, n := range algorithmNames {
		if n == name {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(algorithmNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(a))
	}
	return []byte(algorithmNames[a]), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
