package converter

import (
	"os/exec"
	"runtime"
)

// wellKnownPaths returns the ordered list of absolute paths probed
// before falling back to a PATH lookup, for the calibre tool named
// name ("ebook-convert" or "ebook-meta"). Order matches spec.md §4.1's
// "ordered list of well-known absolute paths, then fall back to PATH".
func wellKnownPaths(name string) []string {
	paths := []string{
		"/Applications/calibre.app/Contents/MacOS/" + name,
		"/usr/bin/" + name,
		"/usr/local/bin/" + name,
		"/opt/calibre/" + name,
	}
	if runtime.GOOS == "windows" {
		paths = append(paths,
			`C:\Program Files\Calibre2\`+name+".exe",
		)
	}
	return paths
}

// resolveBinary probes wellKnownPaths(name) in order, then exec.LookPath,
// returning the first hit. ok is false if nothing resolved.
func resolveBinary(name string, statFn func(string) bool) (path string, ok bool) {
	for _, candidate := range wellKnownPaths(name) {
		if statFn(candidate) {
			return candidate, true
		}
	}

	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return resolved, true
}
