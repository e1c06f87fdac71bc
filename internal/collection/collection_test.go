package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName_StableAcrossCallsWithSameIdentity(t *testing.T) {
	a := Name(Code, "/repo/one", "github.com/acme/widgets")
	b := Name(Code, "/repo/two", "github.com/acme/widgets")
	assert.Equal(t, a, b, "two clones with the same remote produce the same collection name")
}

func TestName_FallsBackToCanonicalPathWhenNoRemote(t *testing.T) {
	a := Name(Code, "/home/user/project", "")
	b := Name(Code, "/home/user/project", "")
	assert.Equal(t, a, b)

	c := Name(Code, "/home/user/other", "")
	assert.NotEqual(t, a, c)
}

func TestName_PrefixDiffersByKind(t *testing.T) {
	code := Name(Code, "/repo", "")
	git := Name(Git, "/repo", "")
	assert.Contains(t, code, "code_")
	assert.Contains(t, git, "git_")
	assert.NotEqual(t, code, git)
}
