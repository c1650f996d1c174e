package materializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-dev/deploy-engine/internal/domain"
)

func TestMaterialize_TemplateOnly(t *testing.T) {
	tree := []domain.FileTreeNode{
		{Name: "src", IsDir: true, Children: []domain.FileTreeNode{
			{Name: "App.tsx", Content: "template content"},
		}},
	}

	fm := Materialize(tree, nil)

	require.Contains(t, fm, "src/App.tsx")
	assert.Equal(t, "template content", fm["src/App.tsx"].Content)
	require.NotNil(t, fm["src/App.tsx"].ParentPath)
	assert.Equal(t, "src", *fm["src/App.tsx"].ParentPath)
}

func TestMaterialize_HappyPathCreate(t *testing.T) {
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"src/App.tsx","modified":"X","isNew":true}
		]}}
	]`)

	fm := Materialize(nil, history)

	require.Contains(t, fm, "src/App.tsx")
	assert.Equal(t, "X", fm["src/App.tsx"].Content)
}

func TestMaterialize_LatestWins(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "original"}}
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"a.ts","modified":"v1","original":"original"}
		]}},
		{"type":"action","plan":{"planId":"p2","actions":[
			{"type":"file","path":"a.ts","modified":"v2","original":"v1"}
		]}}
	]`)

	fm := Materialize(tree, history)

	assert.Equal(t, "v2", fm["a.ts"].Content)
}

func TestMaterialize_IsNewOnExistingPathIsEdit(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "original"}}
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"a.ts","modified":"edited","isNew":true}
		]}}
	]`)

	fm := Materialize(tree, history)

	assert.Len(t, fm, 1)
	assert.Equal(t, "edited", fm["a.ts"].Content)
}

func TestMaterialize_OriginalNilSignalsCreate(t *testing.T) {
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"new.ts","modified":"hello","original":null}
		]}}
	]`)

	fm := Materialize(nil, history)

	require.Contains(t, fm, "new.ts")
	assert.Equal(t, "hello", fm["new.ts"].Content)
}

func TestMaterialize_CommandActionsDoNotTouchFileMap(t *testing.T) {
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"command","command":"bun install","packages":["left-pad"]}
		]}}
	]`)

	fm := Materialize(nil, history)

	assert.Empty(t, fm)
}

func TestMaterialize_MalformedHistoryFallsBackToTemplate(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "template"}}

	fm := Materialize(tree, []byte(`not json`))

	assert.Equal(t, "template", fm["a.ts"].Content)
}

func TestMaterialize_NonStringModifiedIsSkipped(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "template"}}
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"a.ts","isNew":false}
		]}}
	]`)

	fm := Materialize(tree, history)

	assert.Equal(t, "template", fm["a.ts"].Content)
}

func TestMaterialize_Deterministic(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "template"}}
	history := []byte(`[
		{"type":"action","plan":{"planId":"p1","actions":[
			{"type":"file","path":"b.ts","modified":"B","isNew":true}
		]}}
	]`)

	first := Materialize(tree, history)
	second := Materialize(tree, history)

	assert.Equal(t, first, second)
}

func TestMaterialize_ZeroHistoryIsNoOp(t *testing.T) {
	tree := []domain.FileTreeNode{{Name: "a.ts", Content: "template"}}

	fm := Materialize(tree, []byte(`[]`))

	assert.Len(t, fm, 1)
	assert.Equal(t, "template", fm["a.ts"].Content)
}

func TestParseHistory_Empty(t *testing.T) {
	history, ok := ParseHistory(nil)
	assert.True(t, ok)
	assert.Nil(t, history)
}
