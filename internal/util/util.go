// Package util provides small helpers shared by the demo commands.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DemoExt is the extension every demo file carries.
const DemoExt = ".dem"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg unquotes and unescapes a host argument.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// EnsureDemoExt appends ".dem" unless name already ends with it in any case.
func EnsureDemoExt(name string) string {
	if strings.EqualFold(filepath.Ext(name), DemoExt) {
		return name
	}
	return name + DemoExt
}

// DemoPath resolves name against dir. Absolute paths and paths with a
// directory component are used as given.
func DemoPath(dir, name string) string {
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(dir, name)
}

// ListDemos returns the paths of every demo file in dir, sorted by name.
// A missing directory has no demos.
func ListDemos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), DemoExt) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
