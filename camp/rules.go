package camp

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/lixenwraith/mega-knights/config"
)

// Eligibility is the environment exclusion rules are evaluated against
type Eligibility struct {
	Day             int
	MinDay          int
	MaxDay          int
	SiegeDay        int
	CooldownDays    int
	LastCampDay     int
	HasPreviousCamp bool
	SiegeActive     bool
	MilestoneDay    bool
	HasActiveCamp   bool
	Endless         bool
	Players         int
}

// Built-in exclusions; a camp spawns only when none of them hold
var builtinRules = []config.Rule{
	{Name: "before_min_day", When: "Day < MinDay"},
	{Name: "siege_active", When: "SiegeActive"},
	{Name: "milestone_day", When: "MilestoneDay"},
	{Name: "active_camp", When: "HasActiveCamp"},
	{Name: "cooldown", When: "HasPreviousCamp && Day - LastCampDay < CooldownDays"},
	{Name: "past_max_day", When: "!Endless && Day > MaxDay"},
}

// CooldownRule names the exclusion that is bookkept silently
const CooldownRule = "cooldown"

type rule struct {
	name    string
	src     string
	program *vm.Program
}

// RuleSet is a compiled list of exclusion predicates
type RuleSet struct {
	rules []rule
}

// CompileRules compiles the built-in exclusions plus extra content rules
func CompileRules(extra []config.Rule) (*RuleSet, error) {
	all := append(append([]config.Rule{}, builtinRules...), extra...)
	rs := &RuleSet{rules: make([]rule, 0, len(all))}
	for _, r := range all {
		program, err := expr.Compile(r.When, expr.Env(Eligibility{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile camp rule %q: %w", r.Name, err)
		}
		rs.rules = append(rs.rules, rule{name: r.Name, src: r.When, program: program})
	}
	return rs, nil
}

// Exclusions evaluates every rule and returns the names of those that hold
// The result does not depend on rule order; an empty result means eligible
func (rs *RuleSet) Exclusions(env Eligibility) ([]string, error) {
	var hits []string
	for _, r := range rs.rules {
		out, err := vm.Run(r.program, env)
		if err != nil {
			return nil, fmt.Errorf("eval camp rule %q: %w", r.name, err)
		}
		if out.(bool) {
			hits = append(hits, r.name)
		}
	}
	return hits, nil
}

// Len returns the number of compiled rules
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
