package engine

import (
	"testing"

	"policy-shadow-analyzer/internal/model"
)

func simpleRule(action model.Action, fields map[string][]string) *model.AdvancedSecurityRule {
	get := func(key string) model.RuleSet {
		if names, ok := fields[key]; ok {
			return model.NewRuleSet(names...)
		}
		return model.NewRuleSet(model.AnyObj)
	}
	return &model.AdvancedSecurityRule{
		SecurityRule: &model.SecurityRule{
			Name:                 "rule",
			Enabled:              true,
			Action:               action,
			SourceZones:          get("src_zone"),
			DestinationZones:     get("dst_zone"),
			SourceAddresses:      get("src_addr"),
			DestinationAddresses: get("dst_addr"),
			Applications:         get("app"),
			Services:             get("svc"),
			Category:             get("cat"),
		},
	}
}

func TestCheckAction(t *testing.T) {
	allow := simpleRule(model.ActionAllow, nil)
	deny := simpleRule(model.ActionDeny, nil)

	result, err := CheckAction(allow, deny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Covered {
		t.Error("different actions must not be covered")
	}

	result, _ = CheckAction(allow, simpleRule(model.ActionAllow, nil))
	if !result.Covered {
		t.Error("equal actions must be covered")
	}
}

func TestCoveredSetCanonicalSemantics(t *testing.T) {
	tests := []struct {
		name      string
		rule      []string
		preceding []string
		want      bool
	}{
		{"equal sets", []string{"trust", "dmz"}, []string{"dmz", "trust"}, true},
		{"preceding any", []string{"trust"}, []string{"any"}, true},
		{"rule subset", []string{"trust"}, []string{"trust", "dmz"}, true},
		{"rule any, preceding constrained", []string{"any"}, []string{"trust"}, false},
		{"both any", []string{"any"}, []string{"any"}, true},
		{"disjoint", []string{"trust"}, []string{"guest"}, false},
		{"overlap but not subset", []string{"trust", "guest"}, []string{"trust", "dmz"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := simpleRule(model.ActionAllow, map[string][]string{"src_zone": tt.rule})
			preceding := simpleRule(model.ActionAllow, map[string][]string{"src_zone": tt.preceding})
			result, err := CheckSourceZone(rule, preceding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Covered != tt.want {
				t.Errorf("covered = %v, want %v (message: %s)", result.Covered, tt.want, result.Message)
			}
		})
	}
}

func TestCheckServicesUsesExactMembership(t *testing.T) {
	tests := []struct {
		name      string
		rule      []string
		preceding []string
		want      bool
	}{
		{"equal", []string{"tcp/80"}, []string{"tcp/80"}, true},
		{"contained", []string{"tcp/80"}, []string{"tcp/80", "tcp/443"}, true},
		{"not contained", []string{"tcp/80", "udp/53"}, []string{"tcp/80"}, false},
		{"application-default equal", []string{"application-default"}, []string{"application-default"}, true},
		// services has no wildcard special case; 'any' is just a member name
		{"any not special", []string{"tcp/80"}, []string{"any"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := simpleRule(model.ActionAllow, map[string][]string{"svc": tt.rule})
			preceding := simpleRule(model.ActionAllow, map[string][]string{"svc": tt.preceding})
			result, err := CheckServices(rule, preceding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Covered != tt.want {
				t.Errorf("covered = %v, want %v", result.Covered, tt.want)
			}
		})
	}
}

func advancedRule(names []string, resolved ...model.AddressObject) *model.AdvancedSecurityRule {
	rule := simpleRule(model.ActionAllow, map[string][]string{"src_addr": names})
	rule.ResolvedSource = resolved
	return rule
}

func mustNetwork(t *testing.T, name, value string) model.AddressObject {
	t.Helper()
	obj, err := model.NewIPNetwork(name, value)
	if err != nil {
		t.Fatalf("NewIPNetwork(%q): %v", value, err)
	}
	return obj
}

func mustFQDN(t *testing.T, name, value string) model.AddressObject {
	t.Helper()
	obj, err := model.NewFQDN(name, value)
	if err != nil {
		t.Fatalf("NewFQDN(%q): %v", value, err)
	}
	return obj
}

func TestCheckSourceAddressesByIP(t *testing.T) {
	web1 := mustNetwork(t, "web1", "10.0.1.10/32")
	web2 := mustNetwork(t, "web2", "10.0.1.11/32")
	dmz := mustNetwork(t, "dmz", "10.0.1.0/24")
	other := mustNetwork(t, "other", "172.16.0.0/16")
	portal := mustFQDN(t, "portal", "portal.example.com")

	tests := []struct {
		name      string
		rule      *model.AdvancedSecurityRule
		preceding *model.AdvancedSecurityRule
		want      bool
	}{
		{
			name:      "identical name sets",
			rule:      advancedRule([]string{"dmz"}, dmz),
			preceding: advancedRule([]string{"dmz"}, dmz),
			want:      true,
		},
		{
			name:      "preceding wildcard",
			rule:      advancedRule([]string{"web1"}, web1),
			preceding: advancedRule([]string{"any"}),
			want:      true,
		},
		{
			name:      "rule wildcard is strictly broader",
			rule:      advancedRule([]string{"any"}),
			preceding: advancedRule([]string{"dmz"}, dmz),
			want:      false,
		},
		{
			name:      "all members contained",
			rule:      advancedRule([]string{"web1", "web2"}, web1, web2),
			preceding: advancedRule([]string{"dmz"}, dmz),
			want:      true,
		},
		{
			name:      "one member not contained",
			rule:      advancedRule([]string{"web1"}, web1),
			preceding: advancedRule([]string{"other"}, other),
			want:      false,
		},
		{
			name:      "fqdn excluded from containment",
			rule:      advancedRule([]string{"web1", "portal"}, web1, portal),
			preceding: advancedRule([]string{"dmz"}, dmz),
			want:      true,
		},
		{
			name:      "all fqdn is vacuously covered",
			rule:      advancedRule([]string{"portal"}, portal),
			preceding: advancedRule([]string{"other"}, other),
			want:      true,
		},
		{
			name:      "fqdn on preceding side never covers",
			rule:      advancedRule([]string{"web1"}, web1),
			preceding: advancedRule([]string{"portal"}, portal),
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CheckSourceAddressesByIP(tt.rule, tt.preceding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Covered != tt.want {
				t.Errorf("covered = %v, want %v (message: %s)", result.Covered, tt.want, result.Message)
			}
		})
	}
}

func TestFilterChecks(t *testing.T) {
	checks := SimpleChecks()

	filtered := FilterChecks(checks, []string{"zone"})
	for _, check := range filtered {
		if check.Name == "source_zone" || check.Name == "destination_zone" {
			t.Errorf("expected zone checks to be excluded, found %s", check.Name)
		}
	}
	if len(filtered) != len(checks)-2 {
		t.Errorf("expected %d checks after exclusion, got %d", len(checks)-2, len(filtered))
	}

	if got := FilterChecks(checks, nil); len(got) != len(checks) {
		t.Errorf("expected no filtering without keywords, got %d checks", len(got))
	}

	if got := FilterChecks(checks, []string{"address", "action"}); len(got) != len(checks)-3 {
		t.Errorf("expected 3 checks excluded, got %d of %d", len(got), len(checks))
	}
}
