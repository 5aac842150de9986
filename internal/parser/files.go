package parser

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"policy-shadow-analyzer/internal/model"
)

// Supported input file formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

func formatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

// LoadSecurityRules reads an ordered rule list from a JSON, CSV or YAML
// file. The file order is the rule priority order.
func LoadSecurityRules(path string) ([]*model.SecurityRule, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rules, err := ParseSecurityRules(f, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rules, nil
}

// LoadAddressObjects reads address objects from a JSON, CSV or YAML file.
func LoadAddressObjects(path string) ([]model.AddressObject, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	objects, err := ParseAddressObjects(f, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return objects, nil
}

// LoadAddressGroups reads address groups from a JSON, CSV or YAML file.
func LoadAddressGroups(path string) ([]model.AddressGroup, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	groups, err := ParseAddressGroups(f, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return groups, nil
}

// ruleDoc is the wire form of a security rule in JSON and YAML files.
// Omitted set fields default to the wildcard; an omitted enabled flag
// defaults to true.
type ruleDoc struct {
	Name                 string   `json:"name" yaml:"name"`
	Enabled              *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Action               string   `json:"action" yaml:"action"`
	SourceZones          []string `json:"source_zones,omitempty" yaml:"source_zones,omitempty"`
	DestinationZones     []string `json:"destination_zones,omitempty" yaml:"destination_zones,omitempty"`
	SourceAddresses      []string `json:"source_addresses,omitempty" yaml:"source_addresses,omitempty"`
	DestinationAddresses []string `json:"destination_addresses,omitempty" yaml:"destination_addresses,omitempty"`
	Applications         []string `json:"applications,omitempty" yaml:"applications,omitempty"`
	Services             []string `json:"services,omitempty" yaml:"services,omitempty"`
	Category             []string `json:"category,omitempty" yaml:"category,omitempty"`
}

func (d *ruleDoc) toRule() (*model.SecurityRule, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("rule without a name")
	}
	action, err := model.ParseAction(d.Action)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", d.Name, err)
	}
	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}
	return &model.SecurityRule{
		Name:                 d.Name,
		Enabled:              enabled,
		Action:               action,
		SourceZones:          setOrAny(d.SourceZones),
		DestinationZones:     setOrAny(d.DestinationZones),
		SourceAddresses:      setOrAny(d.SourceAddresses),
		DestinationAddresses: setOrAny(d.DestinationAddresses),
		Applications:         setOrAny(d.Applications),
		Services:             setOrAny(d.Services),
		Category:             setOrAny(d.Category),
	}, nil
}

func setOrAny(names []string) model.RuleSet {
	if len(names) == 0 {
		return model.NewRuleSet(model.AnyObj)
	}
	return model.NewRuleSet(names...)
}

// ParseSecurityRules decodes an ordered rule list from r in the given
// format.
func ParseSecurityRules(r io.Reader, format string) ([]*model.SecurityRule, error) {
	var docs []ruleDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatCSV:
		return parseSecurityRulesCSV(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	rules := make([]*model.SecurityRule, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for i := range docs {
		rule, err := docs[i].toRule()
		if err != nil {
			return nil, err
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

// CSV rule files carry one rule per row with semicolon-separated list
// values, in the column layout of a PAN-OS policy export.
func parseSecurityRulesCSV(r io.Reader) ([]*model.SecurityRule, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	var rules []*model.SecurityRule
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		doc := ruleDoc{
			Name:                 cell(row, header, "name"),
			Action:               cell(row, header, "action"),
			SourceZones:          splitList(cell(row, header, "source zone")),
			DestinationZones:     splitList(cell(row, header, "destination zone")),
			SourceAddresses:      splitList(cell(row, header, "source address")),
			DestinationAddresses: splitList(cell(row, header, "destination address")),
			Applications:         splitList(cell(row, header, "application")),
			Services:             splitList(cell(row, header, "service")),
			Category:             splitList(cell(row, header, "category")),
		}
		if doc.Action == "" {
			doc.Action = string(model.ActionAllow)
		}
		if enabled := cell(row, header, "enabled"); enabled != "" {
			value := !strings.EqualFold(enabled, "no") && !strings.EqualFold(enabled, "false")
			doc.Enabled = &value
		}
		rule, err := doc.toRule()
		if err != nil {
			return nil, err
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

// addressDoc is the wire form of an address object. Exactly one of the
// value fields must be set; the keys follow the PAN-OS object types.
type addressDoc struct {
	Name      string `json:"name" yaml:"name"`
	IPNetmask string `json:"ip-netmask,omitempty" yaml:"ip-netmask,omitempty"`
	IPRange   string `json:"ip-range,omitempty" yaml:"ip-range,omitempty"`
	FQDN      string `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`
}

func (d *addressDoc) toObject() (model.AddressObject, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("address object without a name")
	}
	switch {
	case d.IPNetmask != "":
		return model.NewIPNetwork(d.Name, d.IPNetmask)
	case d.IPRange != "":
		return model.NewIPRange(d.Name, d.IPRange)
	case d.FQDN != "":
		return model.NewFQDN(d.Name, d.FQDN)
	}
	return nil, fmt.Errorf("address object %q has no value", d.Name)
}

// ParseAddressObjects decodes address objects from r in the given format.
func ParseAddressObjects(r io.Reader, format string) ([]model.AddressObject, error) {
	var docs []addressDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatCSV:
		rows, header, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			doc := addressDoc{Name: cell(row, header, "name")}
			value := cell(row, header, "address")
			switch cell(row, header, "type") {
			case "IP Address":
				doc.IPNetmask = value
			case "IP Range":
				doc.IPRange = value
			case "FQDN":
				doc.FQDN = value
			default:
				return nil, fmt.Errorf("address object %q has unknown type %q", doc.Name, cell(row, header, "type"))
			}
			docs = append(docs, doc)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	objects := make([]model.AddressObject, 0, len(docs))
	for i := range docs {
		obj, err := docs[i].toObject()
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

type groupDoc struct {
	Name   string   `json:"name" yaml:"name"`
	Static []string `json:"static" yaml:"static"`
}

// ParseAddressGroups decodes address groups from r in the given format.
func ParseAddressGroups(r io.Reader, format string) ([]model.AddressGroup, error) {
	var docs []groupDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
			return nil, err
		}
	case FormatCSV:
		rows, header, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			docs = append(docs, groupDoc{
				Name:   cell(row, header, "name"),
				Static: splitList(cell(row, header, "addresses")),
			})
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	groups := make([]model.AddressGroup, 0, len(docs))
	for _, doc := range docs {
		if doc.Name == "" {
			return nil, fmt.Errorf("address group without a name")
		}
		groups = append(groups, model.AddressGroup{Name: doc.Name, Static: doc.Static})
	}
	return groups, nil
}

func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("could not read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, nil, fmt.Errorf("could not find 'Name' column")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, record)
	}
	return rows, columns, nil
}

func cell(row []string, columns map[string]int, name string) string {
	index, ok := columns[name]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
