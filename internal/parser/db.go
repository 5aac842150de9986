package parser

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"policy-shadow-analyzer/internal/model"
)

// MariaDBLoader reads rules, address objects and address groups from a
// firewall-management database. Rules come back ordered by their position
// column, which is the evaluation priority.
type MariaDBLoader struct {
	db *sql.DB

	Rules          []*model.SecurityRule
	AddressObjects []model.AddressObject
	AddressGroups  []model.AddressGroup
}

func NewMariaDBLoader(dsn string) (*MariaDBLoader, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &MariaDBLoader{db: db}, nil
}

func (l *MariaDBLoader) Close() {
	l.db.Close()
}

func (l *MariaDBLoader) Load() error {
	if err := l.loadAddresses(); err != nil {
		return fmt.Errorf("failed to load addresses: %w", err)
	}
	if err := l.loadAddressGroups(); err != nil {
		return fmt.Errorf("failed to load address groups: %w", err)
	}
	if err := l.loadRules(); err != nil {
		return fmt.Errorf("failed to load security rules: %w", err)
	}
	return nil
}

func (l *MariaDBLoader) loadAddresses() error {
	rows, err := l.db.Query("SELECT object_name, address_type, value FROM cfg_address")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, addrType, value string
		if err := rows.Scan(&name, &addrType, &value); err != nil {
			return err
		}

		var obj model.AddressObject
		switch addrType {
		case "ip-netmask":
			obj, err = model.NewIPNetwork(name, value)
		case "ip-range":
			obj, err = model.NewIPRange(name, value)
		case "fqdn":
			obj, err = model.NewFQDN(name, value)
		default:
			return fmt.Errorf("address object %q has unknown type %q", name, addrType)
		}
		if err != nil {
			return fmt.Errorf("address object %q: %w", name, err)
		}
		l.AddressObjects = append(l.AddressObjects, obj)
	}
	return rows.Err()
}

func (l *MariaDBLoader) loadAddressGroups() error {
	rows, err := l.db.Query("SELECT group_name, members FROM cfg_address_group")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var groupName, membersJSON string
		if err := rows.Scan(&groupName, &membersJSON); err != nil {
			return err
		}
		var members []string
		if err := json.Unmarshal([]byte(membersJSON), &members); err != nil {
			return fmt.Errorf("address group %q: %w", groupName, err)
		}
		l.AddressGroups = append(l.AddressGroups, model.AddressGroup{
			Name:   groupName,
			Static: members,
		})
	}
	return rows.Err()
}

func (l *MariaDBLoader) loadRules() error {
	rows, err := l.db.Query(`SELECT rule_name, action, is_enabled,
		src_zones, dst_zones, src_addrs, dst_addrs,
		applications, services, category
		FROM cfg_security_rule ORDER BY position ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var name, action, isEnabled string
		var srcZones, dstZones, srcAddrs, dstAddrs, apps, services, category sql.NullString
		if err := rows.Scan(&name, &action, &isEnabled,
			&srcZones, &dstZones, &srcAddrs, &dstAddrs,
			&apps, &services, &category); err != nil {
			return err
		}

		if seen[name] {
			return fmt.Errorf("duplicate rule name %q", name)
		}
		seen[name] = true

		parsedAction, err := model.ParseAction(action)
		if err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}

		rule := &model.SecurityRule{
			Name:    name,
			Enabled: isEnabled == "enable",
			Action:  parsedAction,
		}
		fields := []struct {
			column sql.NullString
			target *model.RuleSet
		}{
			{srcZones, &rule.SourceZones},
			{dstZones, &rule.DestinationZones},
			{srcAddrs, &rule.SourceAddresses},
			{dstAddrs, &rule.DestinationAddresses},
			{apps, &rule.Applications},
			{services, &rule.Services},
			{category, &rule.Category},
		}
		for _, field := range fields {
			members, err := decodeMembers(field.column)
			if err != nil {
				return fmt.Errorf("rule %q: %w", name, err)
			}
			*field.target = members
		}
		l.Rules = append(l.Rules, rule)
	}
	return rows.Err()
}

// decodeMembers parses a JSON string array column. NULL and empty arrays
// fall back to the wildcard.
func decodeMembers(column sql.NullString) (model.RuleSet, error) {
	if !column.Valid || column.String == "" {
		return model.NewRuleSet(model.AnyObj), nil
	}
	var members []string
	if err := json.Unmarshal([]byte(column.String), &members); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return model.NewRuleSet(model.AnyObj), nil
	}
	return model.NewRuleSet(members...), nil
}
