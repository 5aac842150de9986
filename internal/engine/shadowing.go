package engine

import (
	"fmt"
	"log/slog"

	"policy-shadow-analyzer/internal/model"
	"policy-shadow-analyzer/internal/resolver"
)

// ChecksOutputs maps a check name to its recorded result. A check that
// errored or panicked for a pair has no entry.
type ChecksOutputs map[string]CheckResult

// PrecedingOutputs maps a preceding rule's name to the check outcomes
// recorded against it.
type PrecedingOutputs map[string]ChecksOutputs

// ExecuteResults maps a rule's name to the outcomes recorded against every
// rule that precedes it in the list.
type ExecuteResults map[string]PrecedingOutputs

// Finding reports one shadowed rule together with the complete list of
// preceding rules that shadow it, in list order.
type Finding struct {
	Rule       *model.SecurityRule
	ShadowedBy []*model.SecurityRule
}

// State of an Analyzer. Re-running Execute or Analyze recomputes from
// scratch; there is no incremental update.
type State int

const (
	StateIdle State = iota
	StateExecuted
	StateAnalyzed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuted:
		return "executed"
	case StateAnalyzed:
		return "analyzed"
	}
	return "unknown"
}

// Analyzer runs the ordered pairwise shadowing comparison over a rule list.
// Each rule is compared against every rule before it with the configured
// checks; a preceding rule fully shadows a rule only when every active
// check passed for the pair.
type Analyzer struct {
	rules  []*model.AdvancedSecurityRule
	checks []Check
	logger *slog.Logger
	state  State
}

// NewAnalyzer builds an analyzer in simple mode: address fields are
// compared by reference name and no resolution takes place.
func NewAnalyzer(rules []*model.SecurityRule, checks []Check, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	advanced := make([]*model.AdvancedSecurityRule, len(rules))
	for i, rule := range rules {
		advanced[i] = &model.AdvancedSecurityRule{SecurityRule: rule}
	}
	return &Analyzer{rules: advanced, checks: checks, logger: logger}
}

// NewAdvancedAnalyzer builds an analyzer whose address checks compare
// resolved address objects by IP containment. Every rule's non-wildcard
// address fields are resolved up front; a resolution failure is fatal
// because a shadowing verdict over unresolved addresses is meaningless.
func NewAdvancedAnalyzer(
	rules []*model.SecurityRule,
	objects []model.AddressObject,
	groups []model.AddressGroup,
	checks []Check,
	logger *slog.Logger,
) (*Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := resolver.New(objects, groups, logger)

	advanced := make([]*model.AdvancedSecurityRule, len(rules))
	for i, rule := range rules {
		advancedRule := &model.AdvancedSecurityRule{SecurityRule: rule}
		if !rule.SourceAddresses.ContainsAny() {
			resolved, err := res.Resolve(rule.SourceAddresses.Names())
			if err != nil {
				return nil, fmt.Errorf("rule %q: resolving source addresses: %w", rule.Name, err)
			}
			advancedRule.ResolvedSource = resolved
		}
		if !rule.DestinationAddresses.ContainsAny() {
			resolved, err := res.Resolve(rule.DestinationAddresses.Names())
			if err != nil {
				return nil, fmt.Errorf("rule %q: resolving destination addresses: %w", rule.Name, err)
			}
			advancedRule.ResolvedDestination = resolved
		}
		advanced[i] = advancedRule
	}
	return &Analyzer{rules: advanced, checks: checks, logger: logger}, nil
}

// State returns the analyzer's current lifecycle state.
func (a *Analyzer) State() State { return a.state }

// Checks returns the active check set.
func (a *Analyzer) Checks() []Check { return a.checks }

// Execute runs every active check for each rule against each of its
// preceding rules and records the outcomes. Checks for a pair stop at the
// first failed check: the aggregation is a logical AND, so the pair can no
// longer qualify.
func (a *Analyzer) Execute() ExecuteResults {
	results := make(ExecuteResults, len(a.rules))
	for i, rule := range a.rules {
		outputs := make(PrecedingOutputs, i)
		for j := 0; j < i; j++ {
			preceding := a.rules[j]
			outputs[preceding.Name] = a.runChecks(rule, preceding)
		}
		results[rule.Name] = outputs
	}
	a.state = StateExecuted
	return results
}

// Analyze aggregates execute results into findings. A preceding rule
// qualifies as a shadower only when every active check was recorded for
// the pair and all recorded results are covered; a missing check result
// (an errored check) disqualifies the pair. Findings keep list order, and
// each finding carries the complete list of qualifying preceding rules.
func (a *Analyzer) Analyze(results ExecuteResults) []Finding {
	var findings []Finding
	for i, rule := range a.rules {
		outputs, ok := results[rule.Name]
		if !ok {
			continue
		}
		var shadowers []*model.SecurityRule
		for j := 0; j < i; j++ {
			preceding := a.rules[j]
			checkOutputs, ok := outputs[preceding.Name]
			if !ok {
				continue
			}
			if a.qualifies(checkOutputs) {
				shadowers = append(shadowers, preceding.SecurityRule)
			}
		}
		if len(shadowers) > 0 {
			findings = append(findings, Finding{Rule: rule.SecurityRule, ShadowedBy: shadowers})
		}
	}
	a.state = StateAnalyzed
	return findings
}

func (a *Analyzer) qualifies(outputs ChecksOutputs) bool {
	if len(outputs) != len(a.checks) {
		return false
	}
	for _, result := range outputs {
		if !result.Covered {
			return false
		}
	}
	return true
}

func (a *Analyzer) runChecks(rule, preceding *model.AdvancedSecurityRule) ChecksOutputs {
	outputs := make(ChecksOutputs, len(a.checks))
	for _, check := range a.checks {
		result, err := a.runCheck(check, rule, preceding)
		if err != nil {
			a.logger.Warn("check failed to run",
				"check", check.Name,
				"rule", rule.Name,
				"preceding_rule", preceding.Name,
				"error", err,
			)
			// No result is recorded; the pair can never qualify.
			break
		}
		outputs[check.Name] = result
		if !result.Covered {
			break
		}
	}
	return outputs
}

func (a *Analyzer) runCheck(check Check, rule, preceding *model.AdvancedSecurityRule) (result CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %q panicked: %v", check.Name, r)
		}
	}()
	return check.Run(rule, preceding)
}
