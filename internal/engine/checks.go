package engine

import (
	"fmt"
	"strings"

	"policy-shadow-analyzer/internal/model"
)

// CheckResult is the outcome of one coverage check between a rule and a
// preceding rule.
type CheckResult struct {
	Covered bool
	Message string
}

// CheckFunc tests whether the traffic matched by preceding is a superset of
// the traffic matched by rule along one dimension. A returned error marks
// the check as failed-to-run; its result is then omitted for the pair.
type CheckFunc func(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error)

// Check is a named coverage check.
type Check struct {
	Name string
	Run  CheckFunc
}

// SimpleChecks returns the check set that compares address fields by
// reference name only.
func SimpleChecks() []Check {
	return []Check{
		{Name: "action", Run: CheckAction},
		{Name: "application", Run: CheckApplication},
		{Name: "services", Run: CheckServices},
		{Name: "category", Run: CheckCategory},
		{Name: "source_zone", Run: CheckSourceZone},
		{Name: "destination_zone", Run: CheckDestinationZone},
		{Name: "source_address", Run: CheckSourceAddress},
		{Name: "destination_address", Run: CheckDestinationAddress},
	}
}

// AdvancedChecks returns the check set with the name-based address checks
// replaced by IP containment checks over resolved address objects.
func AdvancedChecks() []Check {
	return []Check{
		{Name: "action", Run: CheckAction},
		{Name: "application", Run: CheckApplication},
		{Name: "services", Run: CheckServices},
		{Name: "category", Run: CheckCategory},
		{Name: "source_zone", Run: CheckSourceZone},
		{Name: "destination_zone", Run: CheckDestinationZone},
		{Name: "source_address_ip", Run: CheckSourceAddressesByIP},
		{Name: "destination_address_ip", Run: CheckDestinationAddressesByIP},
	}
}

// FilterChecks drops every check whose name contains one of the exclude
// keywords.
func FilterChecks(checks []Check, exclude []string) []Check {
	if len(exclude) == 0 {
		return checks
	}
	kept := make([]Check, 0, len(checks))
	for _, check := range checks {
		excluded := false
		for _, keyword := range exclude {
			if keyword != "" && strings.Contains(check.Name, keyword) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, check)
		}
	}
	return kept
}

// CheckAction passes only when both rules have the same action. There is no
// subset relation between actions.
func CheckAction(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	if rule.Action == preceding.Action {
		return CheckResult{Covered: true, Message: "actions match"}, nil
	}
	return CheckResult{Covered: false, Message: "actions differ"}, nil
}

func CheckSourceZone(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("source zones", rule.SourceZones, preceding.SourceZones), nil
}

func CheckDestinationZone(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("destination zones", rule.DestinationZones, preceding.DestinationZones), nil
}

func CheckApplication(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("applications", rule.Applications, preceding.Applications), nil
}

func CheckCategory(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("categories", rule.Category, preceding.Category), nil
}

// CheckServices passes when the service sets are equal or every service of
// the rule appears by name in the preceding rule's services.
func CheckServices(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	if rule.Services.Equal(preceding.Services) {
		return CheckResult{Covered: true, Message: "services are the same"}, nil
	}
	if rule.Services.SubsetOf(preceding.Services) {
		return CheckResult{Covered: true, Message: "preceding rule contains rule's services"}, nil
	}
	return CheckResult{Covered: false, Message: "preceding rule does not contain all rule's services"}, nil
}

func CheckSourceAddress(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("source addresses", rule.SourceAddresses, preceding.SourceAddresses), nil
}

func CheckDestinationAddress(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredSet("destination addresses", rule.DestinationAddresses, preceding.DestinationAddresses), nil
}

// CheckSourceAddressesByIP compares resolved source addresses by IP
// containment. FQDN objects are excluded from the containment math.
func CheckSourceAddressesByIP(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredAddresses(
		"source",
		rule.SourceAddresses, preceding.SourceAddresses,
		rule.ResolvedSource, preceding.ResolvedSource,
	), nil
}

// CheckDestinationAddressesByIP compares resolved destination addresses by
// IP containment. FQDN objects are excluded from the containment math.
func CheckDestinationAddressesByIP(rule, preceding *model.AdvancedSecurityRule) (CheckResult, error) {
	return coveredAddresses(
		"destination",
		rule.DestinationAddresses, preceding.DestinationAddresses,
		rule.ResolvedDestination, preceding.ResolvedDestination,
	), nil
}

// coveredSet applies the canonical coverage relation between two name sets:
// equal sets cover, a wildcard on the preceding side covers everything, a
// rule-side wildcard against a constrained preceding set can never be
// covered, and otherwise the rule's set must be a subset of the preceding's.
func coveredSet(field string, rs, ps model.RuleSet) CheckResult {
	if rs.Equal(ps) {
		return CheckResult{Covered: true, Message: field + " are the same"}
	}
	if ps.ContainsAny() {
		return CheckResult{Covered: true, Message: "preceding rule " + field + " are 'any'"}
	}
	if rs.SubsetOf(ps) {
		return CheckResult{Covered: true, Message: "preceding rule " + field + " cover rule's " + field}
	}
	if rs.ContainsAny() {
		return CheckResult{Covered: false, Message: "rule " + field + " are 'any', rule is strictly broader"}
	}
	return CheckResult{Covered: false, Message: field + " differ"}
}

func coveredAddresses(direction string, ruleNames, precedingNames model.RuleSet, resolved, precedingResolved []model.AddressObject) CheckResult {
	if ruleNames.Equal(precedingNames) {
		return CheckResult{Covered: true, Message: direction + " addresses are identical"}
	}
	if precedingNames.ContainsAny() {
		return CheckResult{Covered: true, Message: "preceding rule allows any " + direction + " address"}
	}
	if ruleNames.ContainsAny() {
		return CheckResult{Covered: false, Message: "rule allows any " + direction + " address, rule is strictly broader"}
	}

	fqdnCount := 0
	for _, obj := range resolved {
		if _, ok := obj.(*model.FQDN); ok {
			fqdnCount++
			continue
		}
		covered := false
		for _, precedingObj := range precedingResolved {
			if _, ok := precedingObj.(*model.FQDN); ok {
				continue
			}
			if obj.CoveredBy(precedingObj) {
				covered = true
				break
			}
		}
		if !covered {
			return CheckResult{
				Covered: false,
				Message: fmt.Sprintf("%s address %s (%s) not covered by preceding rule", direction, obj.Name(), obj.Value()),
			}
		}
	}

	if fqdnCount == len(resolved) {
		return CheckResult{Covered: true, Message: "only FQDN " + direction + " addresses, coverage check skipped"}
	}
	return CheckResult{Covered: true, Message: "all non-FQDN " + direction + " addresses covered by preceding rule"}
}
