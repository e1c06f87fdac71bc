// Package metadata extracts the properties the indexer attaches to a chunk
// before it is upserted: its public deterministic ID, language, a cheap
// complexity score, and a secret scan (spec §4.5).
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// ChunkID computes the spec's public chunk identifier:
// "chunk_" + hex16(SHA256(path:start:end:content)). This is distinct from
// the internal/chunk package's own 16-char fingerprint, which exists for
// intra-run dedup/stability and is never surfaced outside the index.
func ChunkID(path string, startLine, endLine int, content string) string {
	payload := fmt.Sprintf("%s:%d:%d:%s", path, startLine, endLine, content)
	sum := sha256.Sum256([]byte(payload))
	return "chunk_" + hex.EncodeToString(sum[:])[:16]
}

// CommitChunkID computes the spec's commit-chunk identifier:
// "gitcommit_" + hex16(SHA256(commitHash:repoPath)).
func CommitChunkID(commitHash, repoPath string) string {
	sum := sha256.Sum256([]byte(commitHash + ":" + repoPath))
	return "gitcommit_" + hex.EncodeToString(sum[:])[:16]
}

// extensionLanguage maps a lowercased file extension (with leading dot) to
// a canonical language name.
var extensionLanguage = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".py":    "python",
	".java":  "java",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".hh":    "cpp",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".kt":    "kotlin",
	".swift": "swift",
	".scala": "scala",
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".sh":    "shell",
}

// LanguageForPath returns the canonical language name for a path's
// extension, or "" when the extension is unrecognized.
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return extensionLanguage[ext]
}

// controlFlowTokens are the tokens Complexity counts as one point each
// (spec §4.5: "count of control-flow keywords").
var controlFlowTokens = []string{
	"if", "else", "for", "while", "switch", "case", "catch", "&&", "||", "?",
}

// Complexity returns a non-negative control-flow-keyword count for chunk
// text: occurrences of if/else/for/while/switch/case/catch/&&/||/ternary.
// Zero for empty input. Word-boundary matching avoids counting keyword
// substrings inside identifiers (e.g. "catchment" does not match "catch").
func Complexity(content string) int {
	if content == "" {
		return 0
	}
	count := 0
	for _, tok := range controlFlowTokens {
		count += countOccurrences(content, tok)
	}
	return count
}

func countOccurrences(content, token string) int {
	isWord := isWordToken(token)
	count := 0
	start := 0
	for {
		idx := strings.Index(content[start:], token)
		if idx < 0 {
			break
		}
		pos := start + idx
		if !isWord || (isBoundary(content, pos-1) && isBoundary(content, pos+len(token))) {
			count++
		}
		start = pos + len(token)
	}
	return count
}

func isWordToken(s string) bool {
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := s[i]
	return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
}
