package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExcluded_ClosedSet(t *testing.T) {
	cases := []string{
		"tailwind.config.ts",
		"tsconfig.json",
		"tsconfig.app.json",
		"components.json",
		"src/hooks/use-toast.ts",
		"src/lib/utils.ts",
		"src/assets/react.svg",
		"READEME.md",
		"READEME-ZH.md",
		".gitignore",
		"src/components/ui/button.tsx",
		"src/components/ui/nested/dialog.tsx",
		"public/favicon.ico",
		"public/images/logo.png",
	}

	for _, path := range cases {
		assert.True(t, IsExcluded(path), "expected %s to be excluded", path)
	}
}

func TestIsExcluded_OrdinaryFilesAreKept(t *testing.T) {
	cases := []string{
		"src/App.tsx",
		"src/pages/Home.tsx",
		"package.json",
		"src/components/CustomWidget.tsx",
	}

	for _, path := range cases {
		assert.False(t, IsExcluded(path), "expected %s to be kept", path)
	}
}

func TestFilterExcluded_DropsOnlyMatches(t *testing.T) {
	files := []WriteFile{
		{Path: "src/App.tsx", Content: "a"},
		{Path: "public/logo.png", Content: "b"},
		{Path: "src/components/ui/card.tsx", Content: "c"},
	}

	kept := FilterExcluded(files)

	assert.Len(t, kept, 1)
	assert.Equal(t, "src/App.tsx", kept[0].Path)
}

func TestIsMock(t *testing.T) {
	assert.True(t, IsMock("sandbox-local-123"))
	assert.False(t, IsMock("e2b-real-id"))
}
