package p4

import (
	"fmt"
	"strings"
)

var (
	pathEscaper   = strings.NewReplacer("%", "%25", "@", "%40", "#", "%23", "*", "%2A")
	pathUnescaper = strings.NewReplacer("%40", "@", "%23", "#", "%2A", "*", "%2a", "*", "%25", "%")
)

// EscapePath encodes the characters the server treats as revision or
// wildcard markers.
func EscapePath(path string) string {
	return pathEscaper.Replace(path)
}

// UnescapePath reverses EscapePath.
func UnescapePath(path string) string {
	return pathUnescaper.Replace(path)
}

// FileSpec names a single file, either by depot path ("//depot/...") or by
// local path. Path is kept unescaped.
type FileSpec struct {
	Path string
}

// NewFileSpec builds a spec for an unescaped path.
func NewFileSpec(path string) FileSpec {
	return FileSpec{Path: path}
}

// FileSpecs builds specs for several paths.
func FileSpecs(paths ...string) []FileSpec {
	specs := make([]FileSpec, 0, len(paths))
	for _, p := range paths {
		specs = append(specs, NewFileSpec(p))
	}
	return specs
}

func (f FileSpec) IsDepotPath() bool {
	return strings.HasPrefix(f.Path, "//")
}

// Escaped returns the path as it is sent to the server.
func (f FileSpec) Escaped() string {
	return EscapePath(f.Path)
}

func (f FileSpec) String() string {
	return f.Escaped()
}

func validateSinglePair(source, target []FileSpec) error {
	if len(source) != 1 || len(target) != 1 {
		return fmt.Errorf("%w: must have 1 source and 1 target, have %v; %v", ErrInvalidArgument, source, target)
	}
	if source[0].Path == "" || target[0].Path == "" {
		return fmt.Errorf("%w: source and target paths must not be empty", ErrInvalidArgument)
	}
	return nil
}
