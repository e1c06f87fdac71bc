package mcptools

import "github.com/codeforge-dev/indexcore/internal/retrieval"

// retrieverOptionsFor builds retrieval.SearchOptions from a tool call's flat
// filter map (spec §4.11's {key:value} all-must rewrite); BuildFilter also
// accepts the structured must/should/must_not form, so either shape a
// caller sends through the filter field works here.
func retrieverOptionsFor(limit int, rawFilter map[string]any, useHybrid bool) retrieval.SearchOptions {
	filter, _ := retrieval.BuildFilter(rawFilter)
	return retrieval.SearchOptions{Limit: limit, UseHybrid: useHybrid, Filter: filter}
}
