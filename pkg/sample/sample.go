// Package sample bundles a small firewall dataset used by the --sample run
// mode and by tests. The rule list intentionally contains shadowed rules:
// one detectable by name comparison alone and one that only shows up once
// address groups are resolved to IP networks.
package sample

import (
	"bytes"
	"log"

	_ "embed"

	"policy-shadow-analyzer/internal/model"
	"policy-shadow-analyzer/internal/parser"
)

//go:embed rules.json
var rulesData []byte

//go:embed addresses.json
var addressesData []byte

//go:embed groups.json
var groupsData []byte

var (
	rules   []*model.SecurityRule
	objects []model.AddressObject
	groups  []model.AddressGroup
)

func init() {
	var err error
	rules, err = parser.ParseSecurityRules(bytes.NewReader(rulesData), parser.FormatJSON)
	if err != nil {
		log.Fatalf("Failed to parse embedded rules.json: %v", err)
	}
	objects, err = parser.ParseAddressObjects(bytes.NewReader(addressesData), parser.FormatJSON)
	if err != nil {
		log.Fatalf("Failed to parse embedded addresses.json: %v", err)
	}
	groups, err = parser.ParseAddressGroups(bytes.NewReader(groupsData), parser.FormatJSON)
	if err != nil {
		log.Fatalf("Failed to parse embedded groups.json: %v", err)
	}
}

// Rules returns the bundled ordered rule list.
func Rules() []*model.SecurityRule { return rules }

// AddressObjects returns the bundled address objects.
func AddressObjects() []model.AddressObject { return objects }

// AddressGroups returns the bundled address groups.
func AddressGroups() []model.AddressGroup { return groups }
