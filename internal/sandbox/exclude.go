package sandbox

import "strings"

// excludedPaths is the closed denylist of scaffolded template paths that
// never get written to a sandbox.
var excludedPaths = map[string]struct{}{
	"tailwind.config.ts":        {},
	"components.json":           {},
	"src/hooks/use-toast.ts":    {},
	"src/lib/utils.ts":          {},
	"src/assets/react.svg":      {},
	"READEME.md":                {},
	"READEME-ZH.md":             {},
	".gitignore":                {},
}

// isExcludedTSConfig matches the tsconfig*.json wildcard entry.
func isExcludedTSConfig(path string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}

	return strings.HasPrefix(base, "tsconfig") && strings.HasSuffix(base, ".json")
}

// isExcludedUIComponent matches every src/components/ui/*.tsx entry.
func isExcludedUIComponent(path string) bool {
	const prefix = "src/components/ui/"

	return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, ".tsx")
}

// IsExcluded reports whether path belongs to the closed exclusion set,
// dropped before WriteFiles regardless of workflow or sandbox provider.
func IsExcluded(path string) bool {
	if _, ok := excludedPaths[path]; ok {
		return true
	}

	if strings.HasPrefix(path, "public/") {
		return true
	}

	if isExcludedTSConfig(path) {
		return true
	}

	return isExcludedUIComponent(path)
}

// FilterExcluded drops excluded files from a FileMap-shaped slice, keeping
// the rest in order.
func FilterExcluded(files []WriteFile) []WriteFile {
	kept := make([]WriteFile, 0, len(files))

	for _, f := range files {
		if IsExcluded(f.Path) {
			continue
		}

		kept = append(kept, f)
	}

	return kept
}
