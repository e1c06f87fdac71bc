// Package collection derives stable, deterministic vector-store collection
// names from a repository's identity (spec §4.13).
package collection

import (
	"crypto/md5" //nolint:gosec // used for a short deterministic name, not for security
	"encoding/hex"
	"path/filepath"
)

// Kind selects the collection name prefix.
type Kind string

const (
	Code Kind = "code"
	Git  Kind = "git"
)

func (k Kind) prefix() string {
	switch k {
	case Git:
		return "git_"
	default:
		return "code_"
	}
}

// Name computes collectionName(path) = prefix + hex8(MD5(identity)) where
// identity is the normalized git remote URL when non-empty, else the
// canonical absolute path (spec §3, §4.13). Two clones of the same repo on
// different machines therefore produce the same collection name whenever a
// remote URL is available.
func Name(kind Kind, canonicalPath, normalizedRemoteURL string) string {
	identity := normalizedRemoteURL
	if identity == "" {
		identity = filepath.ToSlash(canonicalPath)
	}

	sum := md5.Sum([]byte(identity)) //nolint:gosec
	return kind.prefix() + hex.EncodeToString(sum[:])[:8]
}
