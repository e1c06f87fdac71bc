package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_EqualMapsProduceEqualRoot(t *testing.T) {
	a := FileHashes{"a.go": "1", "b.go": "2", "c.go": "3"}
	b := FileHashes{"c.go": "3", "a.go": "1", "b.go": "2"}

	assert.Equal(t, Build(a).RootHash(), Build(b).RootHash())
}

func TestBuild_SingleFileChangeChangesRoot(t *testing.T) {
	a := FileHashes{"a.go": "1", "b.go": "2"}
	b := FileHashes{"a.go": "1!", "b.go": "2"}

	assert.NotEqual(t, Build(a).RootHash(), Build(b).RootHash())
}

func TestBuild_EmptyMapHasEmptyRoot(t *testing.T) {
	assert.Equal(t, "", Build(FileHashes{}).RootHash())
}

func TestBuild_OddCountPairsLastNodeWithItself(t *testing.T) {
	one := Build(FileHashes{"a.go": "1"})
	require.NotNil(t, one.Root)
	expected := internalHash(leafHash("a.go", "1"), leafHash("a.go", "1"))

	three := Build(FileHashes{"a.go": "1", "b.go": "2", "c.go": "3"})
	assert.NotEqual(t, expected, three.RootHash())
}

func TestDetectChanges_AddModifyDelete(t *testing.T) {
	previous := FileHashes{"a.ts": "1", "b.ts": "2", "c.ts": "3"}
	current := FileHashes{"a.ts": "1!", "b.ts": "2", "d.ts": "4"}

	diff := DetectChanges(previous, current)
	assert.Equal(t, []string{"d.ts"}, diff.Added)
	assert.Equal(t, []string{"a.ts"}, diff.Modified)
	assert.Equal(t, []string{"c.ts"}, diff.Deleted)
}

func TestDetectChanges_NoChangesIsEmpty(t *testing.T) {
	hashes := FileHashes{"a.go": "1"}
	diff := DetectChanges(hashes, hashes)
	assert.True(t, diff.IsEmpty())
}
