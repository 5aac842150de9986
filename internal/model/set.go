package model

import "sort"

const (
	// AnyObj is the wildcard token meaning "match everything" for a field.
	AnyObj = "any"
	// AppDefault is the reserved services token for application-default ports.
	AppDefault = "application-default"
)

// RuleSet is an unordered set of names as they appear on a rule field,
// e.g. zone names, address object/group references or application names.
type RuleSet map[string]struct{}

func NewRuleSet(names ...string) RuleSet {
	s := make(RuleSet, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

func (s RuleSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// ContainsAny reports whether the set carries the wildcard token.
func (s RuleSet) ContainsAny() bool {
	return s.Contains(AnyObj)
}

func (s RuleSet) Equal(other RuleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if !other.Contains(name) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every member of s is also a member of other.
func (s RuleSet) SubsetOf(other RuleSet) bool {
	if len(s) > len(other) {
		return false
	}
	for name := range s {
		if !other.Contains(name) {
			return false
		}
	}
	return true
}

func (s RuleSet) Len() int {
	return len(s)
}

// Names returns the members in sorted order, for stable output.
func (s RuleSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
