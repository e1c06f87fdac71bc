package vectorstore

import (
	qdrant "github.com/qdrant/go-client/qdrant"
)

// buildFilter translates the capability-level Filter into the wire-level
// qdrant.Filter, leaf by leaf (spec §4.11 / §6 filter language). A nil
// result means "no filter".
func buildFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	return &qdrant.Filter{
		Must:    buildConditions(f.Must),
		Should:  buildConditions(f.Should),
		MustNot: buildConditions(f.MustNot),
	}
}

func buildConditions(conds []Condition) []*qdrant.Condition {
	if len(conds) == 0 {
		return nil
	}
	out := make([]*qdrant.Condition, 0, len(conds))
	for _, c := range conds {
		if fc := buildFieldCondition(c); fc != nil {
			out = append(out, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{Field: fc},
			})
		}
	}
	return out
}

func buildFieldCondition(c Condition) *qdrant.FieldCondition {
	switch {
	case c.Match != nil:
		return &qdrant.FieldCondition{Key: c.Key, Match: buildMatch(*c.Match)}
	case c.Range != nil:
		return &qdrant.FieldCondition{Key: c.Key, Range: buildRange(*c.Range)}
	default:
		return nil
	}
}

func buildMatch(m MatchCondition) *qdrant.Match {
	switch {
	case m.Text != "":
		return &qdrant.Match{MatchValue: &qdrant.Match_Text{Text: m.Text}}
	case len(m.Any) > 0:
		return &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{
			Strings: toStrings(m.Any),
		}}}
	default:
		return matchValue(m.Value)
	}
}

func matchValue(v any) *qdrant.Match {
	switch val := v.(type) {
	case string:
		return &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: val}}
	case bool:
		return &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: val}}
	case int:
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(val)}}
	case int64:
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: val}}
	case float64:
		// JSON-decoded numeric payload values arrive as float64; an exact
		// match on a whole number still routes through the integer match.
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(val)}}
	default:
		return &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: ""}}
	}
}

func toStrings(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func buildRange(r RangeCondition) *qdrant.Range {
	rng := &qdrant.Range{}
	if r.Gte != nil {
		rng.Gte = r.Gte
	}
	if r.Lte != nil {
		rng.Lte = r.Lte
	}
	return rng
}
