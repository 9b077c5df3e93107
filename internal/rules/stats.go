// internal/rules/stats.go
package rules

import (
	"sort"

	"github.com/swayhq/sway/internal/types"
)

/*
 * Rule tree statistics.
 *
 * Summarizes a compiled FieldRule for the route table, snapshots and the
 * admin API. Cost is a rough per-request evaluation estimate built from
 * per-kind constants; nested rules add their own cost and arrays multiply
 * element cost by ArrayElementFactor.
 */

// Per-kind evaluation cost estimates.
const (
	CostIsType    = 1
	CostBound     = 2
	CostLength    = 2
	CostContains  = 4
	CostFormat    = 16
	CostCustom    = 32
	CostStructure = 4

	// ArrayElementFactor is the assumed element count of an array.
	ArrayElementFactor = 8
)

// TreeStats describes the shape of a rule tree.
type TreeStats struct {
	Rules        int      `json:"rules" yaml:"rules"`
	Alternatives int      `json:"alternatives" yaml:"alternatives"`
	Depth        int      `json:"depth" yaml:"depth"`
	Cost         int      `json:"cost" yaml:"cost"`
	Formats      []string `json:"formats,omitempty" yaml:"formats,omitempty"`
	Custom       []string `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Stats walks field and returns its statistics.
func Stats(field types.FieldRule) TreeStats {
	w := &statsWalker{formats: map[string]bool{}, custom: map[string]bool{}}
	s := TreeStats{}
	s.Cost = w.field(field, 1, &s)
	s.Formats = sortedKeys(w.formats)
	s.Custom = sortedKeys(w.custom)
	return s
}

type statsWalker struct {
	formats map[string]bool
	custom  map[string]bool
}

func (w *statsWalker) field(f types.FieldRule, depth int, s *TreeStats) int {
	if depth > s.Depth {
		s.Depth = depth
	}
	s.Alternatives += len(f.Rules.Or)

	cost := 0
	for _, r := range f.Rules.And {
		cost += w.rule(r, depth, s)
	}
	// Alternatives are charged at the most expensive one.
	worst := 0
	for _, alt := range f.Rules.Or {
		c := 0
		for _, r := range alt {
			c += w.rule(r, depth, s)
		}
		if c > worst {
			worst = c
		}
	}
	return cost + worst
}

func (w *statsWalker) rule(r types.RuleSetting, depth int, s *TreeStats) int {
	s.Rules++
	switch r.Kind {
	case types.RuleIsType:
		return CostIsType
	case types.RuleMin, types.RuleMax:
		return CostBound
	case types.RuleMinLength, types.RuleMaxLength:
		return CostLength
	case types.RuleContains:
		return CostContains
	case types.RuleFormat:
		if name, ok := r.Value.(string); ok {
			w.formats[name] = true
		}
		return CostFormat
	case types.RuleCustom:
		if name, ok := r.Value.(string); ok {
			w.custom[name] = true
		}
		return CostCustom
	case types.RuleIsObject:
		return CostStructure + w.nested(r.NestedFields, depth, s)
	case types.RuleIsArray:
		if len(r.NestedFields) == 0 {
			return CostStructure + CostIsType*ArrayElementFactor
		}
		return CostStructure + ArrayElementFactor*w.nested(r.NestedFields, depth, s)
	}
	return 0
}

func (w *statsWalker) nested(fields []types.FieldRule, depth int, s *TreeStats) int {
	total := 0
	for _, nf := range fields {
		total += w.field(nf, depth+1, s)
	}
	return total
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
