// Package effects is the built-in effect library. Each effect is a YAML
// document: either a container document for particles.Load, or a simple
// system document carrying a top-level type.
package effects

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/pthm-cable/psys/node"
)

//go:embed *.yaml
var files embed.FS

// ErrUnknownEffect is returned for names not in the library.
var ErrUnknownEffect = errors.New("unknown effect")

// Names returns the effect names in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Read returns the raw YAML of the named effect.
func Read(name string) ([]byte, error) {
	data, err := files.ReadFile(path.Clean(name) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownEffect, name, Names())
	}
	return data, nil
}

// Parse reads and parses the named effect.
func Parse(name string) (node.Node, error) {
	data, err := Read(name)
	if err != nil {
		return node.Node{}, err
	}
	n, err := node.Parse(data)
	if err != nil {
		return node.Node{}, fmt.Errorf("parsing effect %q: %w", name, err)
	}
	return n, nil
}

// IsSimple reports whether n describes a simple system rather than a
// container document.
func IsSimple(n node.Node) bool {
	return n.IsMap() && n.Has("type")
}
