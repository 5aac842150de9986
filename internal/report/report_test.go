package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"policy-shadow-analyzer/internal/engine"
	"policy-shadow-analyzer/internal/model"
)

func sampleFindings() []engine.Finding {
	broad := &model.SecurityRule{Name: "allow-dmz", Action: model.ActionAllow}
	narrow := &model.SecurityRule{Name: "allow-web", Action: model.ActionAllow}
	other := &model.SecurityRule{Name: "allow-web-dup", Action: model.ActionAllow}
	return []engine.Finding{
		{Rule: narrow, ShadowedBy: []*model.SecurityRule{broad}},
		{Rule: other, ShadowedBy: []*model.SecurityRule{broad, narrow}},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatText, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "'allow-web' shadowed by:") || !strings.Contains(out, "- 'allow-dmz'") {
		t.Errorf("unexpected text output:\n%s", out)
	}

	buf.Reset()
	if err := Write(&buf, FormatText, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "No shadowed rules found.") {
		t.Errorf("unexpected empty output: %q", buf.String())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTable, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "RULE") {
		t.Errorf("expected header line, got %q", lines[0])
	}
	if !strings.Contains(lines[2], "allow-dmz, allow-web") {
		t.Errorf("expected complete shadower list, got %q", lines[2])
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var records []struct {
		Rule       string   `json:"rule"`
		Action     string   `json:"action"`
		ShadowedBy []string `json:"shadowed_by"`
	}
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(records) != 2 || records[0].Rule != "allow-web" || len(records[1].ShadowedBy) != 2 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestWriteYAMLRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatYAML, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var records []struct {
		Rule       string   `yaml:"rule"`
		ShadowedBy []string `yaml:"shadowed_by"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(records) != 2 || records[1].Rule != "allow-web-dup" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "rule,action,shadowed_by" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[2], "allow-dmz;allow-web") {
		t.Errorf("expected semicolon-joined shadowers, got %q", lines[2])
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatHTML, sampleFindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<table>") || !strings.Contains(out, "allow-web-dup") {
		t.Errorf("unexpected HTML output:\n%s", out)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}
