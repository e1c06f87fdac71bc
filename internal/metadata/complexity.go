package metadata

// ComplexityForChunk applies the resolved base-floor rule: a chunk that
// carries a named symbol (function/class/method) always scores at least 1,
// even with zero control-flow keywords, since a bare declaration still
// represents one unit of control flow entry. Symbol-less chunks (the
// character-window fallback) use the raw keyword count with no floor.
func ComplexityForChunk(content string, hasSymbol bool) int {
	score := Complexity(content)
	if hasSymbol && score < 1 {
		return 1
	}
	return score
}
