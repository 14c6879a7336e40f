package core

import "path/filepath"

// ResolvePathFromSpec resolves a path written in a spec file. Absolute paths
// are returned as is; relative ones are joined with the spec's directory.
func ResolvePathFromSpec(specDir, pathFromYAML string) string {
	if pathFromYAML == "" || filepath.IsAbs(pathFromYAML) {
		return pathFromYAML
	}
	return filepath.Join(specDir, pathFromYAML)
}
