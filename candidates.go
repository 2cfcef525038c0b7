package nativebind

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPlatform is the Candidates key used when no entry exists for the
// running platform.
const DefaultPlatform = "DEFAULT"

// Candidates maps a platform (runtime.GOOS value) to the ordered file-name
// stems tried for a library. A flat list is stored under DefaultPlatform.
type Candidates map[string][]string

// Stems returns a flat candidate list used on every platform.
func Stems(stems ...string) Candidates {
	return Candidates{DefaultPlatform: stems}
}

// For returns the stems for platform, falling back to DefaultPlatform.
func (c Candidates) For(platform string) []string {
	if s, ok := c[platform]; ok {
		return s
	}
	return c[DefaultPlatform]
}

// ParseCandidates decodes a flat list ([]string, []any) or a platform-keyed
// mapping (map[string]any, map[string][]string) as found in decoded YAML
// or JSON.
func ParseCandidates(v any) (Candidates, error) {
	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty candidate list", ErrInvalidArgument)
	case string:
		return Stems(t), nil
	case []string, []any:
		var stems []string
		if err := mapstructure.Decode(v, &stems); err != nil {
			return nil, fmt.Errorf("%w: candidate list: %v", ErrInvalidArgument, err)
		}
		return Stems(stems...), nil
	}

	var m map[string][]string
	if err := mapstructure.Decode(v, &m); err != nil {
		return nil, fmt.Errorf("%w: candidate mapping: %v", ErrInvalidArgument, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: empty candidate mapping", ErrInvalidArgument)
	}
	return Candidates(m), nil
}

// Catalog is a set of named libraries and their candidates.
type Catalog map[string]Candidates

// Names returns the catalog's library names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadCatalog reads a YAML file of the form
//
//	libraries:
//	  SDL2: [SDL2, SDL2-2.0]
//	  SDL2_image:
//	    windows: [SDL2_image]
//	    DEFAULT: [SDL2_image, SDL2_image-2.0]
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Libraries map[string]any `yaml:"libraries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	cat := make(Catalog, len(doc.Libraries))
	for name, raw := range doc.Libraries {
		c, err := ParseCandidates(raw)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", name, err)
		}
		cat[name] = c
	}
	return cat, nil
}

// FileNames returns the platform-specific file names for one stem.
func FileNames(platform, stem string) []string {
	switch platform {
	case "windows":
		return []string{stem + ".dll", "lib" + stem + ".dll"}
	case "darwin", "ios":
		return []string{
			"lib" + stem + ".dylib",
			filepath.Join(stem+".framework", stem),
		}
	default:
		return []string{"lib" + stem + ".so"}
	}
}

// matchInDir returns the existing files in dir for a file name, in
// priority order. On ELF platforms versioned sonames (libfoo.so.2) are
// matched after the exact name, newest first.
func matchInDir(platform, dir, name string) []string {
	var out []string
	exact := filepath.Join(dir, name)
	if isFile(exact) {
		out = append(out, exact)
	}
	if platform == "windows" || platform == "darwin" || platform == "ios" {
		return out
	}
	versioned, _ := filepath.Glob(exact + ".[0-9]*")
	sort.Slice(versioned, func(i, j int) bool {
		return compareVersions(versioned[i], versioned[j]) > 0
	})
	for _, v := range versioned {
		if isFile(v) {
			out = append(out, v)
		}
	}
	return out
}

// compareVersions orders "libfoo.so.2.10" after "libfoo.so.2.9".
func compareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		var na, nb int
		_, ea := fmt.Sscanf(pa[i], "%d", &na)
		_, eb := fmt.Sscanf(pb[i], "%d", &nb)
		if ea == nil && eb == nil && na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
		return strings.Compare(pa[i], pb[i])
	}
	return len(pa) - len(pb)
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
