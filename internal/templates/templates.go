// Package templates is the project template registry the sync-files step
// consults to re-derive initFiles server-side. The engine ships a single
// default template; a client-supplied initFiles value is never trusted.
package templates

import "github.com/libra-dev/deploy-engine/internal/domain"

// DefaultTemplateName is the only template this registry currently serves.
const DefaultTemplateName = "vite-shadcn-template-builder-libra"

// RootPath is prepended to every path written during sync-files.
const RootPath = "/home/user/vite-shadcn-template-builder-libra/"

// Registry resolves a template name to its seed file tree.
type Registry struct {
	trees map[string][]domain.FileTreeNode
}

// NewRegistry builds a Registry seeded with the default template.
func NewRegistry() *Registry {
	return &Registry{
		trees: map[string][]domain.FileTreeNode{
			DefaultTemplateName: defaultTree(),
		},
	}
}

// NewRegistryWithTrees builds a Registry seeded with exactly the given
// templates, bypassing the built-in default. Exists for tests that need to
// exercise a template shape the shipped starter doesn't have (e.g. an empty
// tree for the zero-files edge case).
func NewRegistryWithTrees(trees map[string][]domain.FileTreeNode) *Registry {
	return &Registry{trees: trees}
}

// Tree returns the file tree for name, or the default template if name is
// empty or unrecognized — the registry is append-only today and never
// fails a lookup, since every project is provisioned against one template.
func (r *Registry) Tree(name string) []domain.FileTreeNode {
	if tree, ok := r.trees[name]; ok {
		return tree
	}

	return r.trees[DefaultTemplateName]
}

// defaultTree is a minimal Vite + shadcn/ui starter skeleton: enough
// structure for the exclusion set to have real paths to match against,
// without vendoring the full upstream starter.
func defaultTree() []domain.FileTreeNode {
	return []domain.FileTreeNode{
		{Name: "package.json", Content: defaultPackageJSON},
		{Name: "index.html", Content: defaultIndexHTML},
		{Name: "tailwind.config.ts", Content: "export default {}\n"},
		{Name: "tsconfig.json", Content: "{}\n"},
		{Name: "components.json", Content: "{}\n"},
		{
			Name:  "public",
			IsDir: true,
			Children: []domain.FileTreeNode{
				{Name: "favicon.ico", Content: "", IsBinary: true},
			},
		},
		{
			Name:  "src",
			IsDir: true,
			Children: []domain.FileTreeNode{
				{Name: "main.tsx", Content: defaultMainTSX},
				{Name: "App.tsx", Content: defaultAppTSX},
				{
					Name:  "components",
					IsDir: true,
					Children: []domain.FileTreeNode{
						{
							Name:  "ui",
							IsDir: true,
							Children: []domain.FileTreeNode{
								{Name: "button.tsx", Content: defaultButtonTSX},
							},
						},
					},
				},
				{
					Name:  "lib",
					IsDir: true,
					Children: []domain.FileTreeNode{
						{Name: "utils.ts", Content: "export function cn(...classes: string[]) { return classes.filter(Boolean).join(' ') }\n"},
					},
				},
			},
		},
	}
}

const defaultPackageJSON = `{
  "name": "libra-project",
  "private": true,
  "scripts": {
    "build": "vite build"
  }
}
`

const defaultIndexHTML = `<!doctype html>
<html>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>
`

const defaultMainTSX = `import { createRoot } from "react-dom/client"
import App from "./App"

createRoot(document.getElementById("root")!).render(<App />)
`

const defaultAppTSX = `export default function App() {
  return <div>Hello</div>
}
`

const defaultButtonTSX = `export function Button(props: React.ButtonHTMLAttributes<HTMLButtonElement>) {
  return <button {...props} />
}
`
