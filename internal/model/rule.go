package model

import "fmt"

// Action is what a rule does with matched traffic.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionDeny    Action = "deny"
	ActionMonitor Action = "monitor"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAllow, ActionDeny, ActionMonitor:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// SecurityRule is one firewall policy entry. The position of a rule in a
// rule list is its priority; a rule is only ever compared against rules
// that appear before it. Rules are not mutated after loading.
type SecurityRule struct {
	Name                 string
	Enabled              bool
	Action               Action
	SourceZones          RuleSet
	DestinationZones     RuleSet
	SourceAddresses      RuleSet
	DestinationAddresses RuleSet
	Applications         RuleSet
	Services             RuleSet
	Category             RuleSet
}

// AdvancedSecurityRule pairs a rule with its address fields expanded into
// concrete address objects. Rules whose address field is the wildcard keep
// a nil resolved list; the wildcard is handled before resolution.
type AdvancedSecurityRule struct {
	*SecurityRule
	ResolvedSource      []AddressObject
	ResolvedDestination []AddressObject
}

// AddressGroup is a named collection of address reference names. A member
// may name another group; groups form a directed acyclic graph.
type AddressGroup struct {
	Name   string
	Static []string
}
