// Package materializer folds an ordered plan-action log onto an initial
// file template to produce the project's current file map. It is
// deliberately dependency-free: the algorithm is a pure, restartable fold
// over in-memory data, with no I/O of its own (see DESIGN.md for why this
// is the one package in the repo with no third-party import).
package materializer

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/libra-dev/deploy-engine/internal/domain"
)

// Materialize flattens initFiles and folds history onto it, producing the
// final FileMap. Determinism: for any (initFiles, history), Materialize
// returns the same result byte-for-byte regardless of call count.
func Materialize(initFiles []domain.FileTreeNode, rawHistory []byte) domain.FileMap {
	fm := flatten(initFiles, "")

	history, ok := ParseHistory(rawHistory)
	if !ok {
		// Malformed JSON history: treat as empty log and proceed with
		// template only.
		return fm
	}

	for _, msg := range history {
		if msg.Plan == nil {
			continue // PlanDescription/Thinking entries are opaque to the core
		}

		for _, action := range msg.Plan.Actions {
			switch {
			case action.IsFileAction():
				applyFileAction(fm, action)
			case action.IsCommandAction():
				// command actions never touch the file map
			}
		}
	}

	return fm
}

// ParseHistory decodes the project's raw messageHistory JSON array. A
// malformed payload is reported via the second return value rather than an
// error, since the caller's only valid response is to fall back to an
// empty log.
func ParseHistory(raw []byte) ([]domain.HistoryMessage, bool) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, true
	}

	var history []domain.HistoryMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, false
	}

	return history, true
}

func applyFileAction(fm domain.FileMap, action domain.Action) {
	if action.Modified == nil {
		// an entry whose modified is not a string is skipped. No warning is
		// emitted: this pure function has no logger, and nothing reports the
		// skipped entry back to the caller.
		return
	}

	_, exists := fm[action.Path]

	if !exists && !action.IsCreate() {
		// neither present in the map nor flagged as a create: nothing to
		// overwrite and no basis to insert. Skip.
		return
	}

	parent := parentPath(action.Path)

	fm[action.Path] = domain.FileEntry{
		Content:    *action.Modified,
		IsBinary:   false,
		ParentPath: parent,
	}
}

// flatten walks the nested initFiles tree into a path-keyed map.
func flatten(nodes []domain.FileTreeNode, prefix string) domain.FileMap {
	fm := make(domain.FileMap)
	flattenInto(fm, nodes, prefix)

	return fm
}

func flattenInto(fm domain.FileMap, nodes []domain.FileTreeNode, prefix string) {
	for _, node := range nodes {
		fullPath := node.Name
		if prefix != "" {
			fullPath = path.Join(prefix, node.Name)
		}

		if node.IsDir {
			flattenInto(fm, node.Children, fullPath)
			continue
		}

		fm[fullPath] = domain.FileEntry{
			Content:    node.Content,
			IsBinary:   node.IsBinary,
			ParentPath: parentPath(fullPath),
		}
	}
}

// parentPath returns the dirname of p, or nil at root.
func parentPath(p string) *string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return nil
	}

	return &dir
}
