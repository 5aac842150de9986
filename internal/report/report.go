package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"policy-shadow-analyzer/internal/engine"
)

// Supported output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
	FormatHTML  = "html"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatTable, FormatJSON, FormatYAML, FormatCSV, FormatHTML}
}

// Write renders findings to w in the given format.
func Write(w io.Writer, format string, findings []engine.Finding) error {
	switch format {
	case FormatText:
		return writeText(w, findings)
	case FormatTable:
		return writeTable(w, findings)
	case FormatJSON:
		return writeJSON(w, findings)
	case FormatYAML:
		return writeYAML(w, findings)
	case FormatCSV:
		return writeCSV(w, findings)
	case FormatHTML:
		return writeHTML(w, findings)
	}
	return fmt.Errorf("unknown output format: %s", format)
}

// findingRecord is the flat serialized form of a finding.
type findingRecord struct {
	Rule       string   `json:"rule" yaml:"rule"`
	Action     string   `json:"action" yaml:"action"`
	ShadowedBy []string `json:"shadowed_by" yaml:"shadowed_by"`
}

func toRecords(findings []engine.Finding) []findingRecord {
	records := make([]findingRecord, 0, len(findings))
	for _, finding := range findings {
		record := findingRecord{
			Rule:   finding.Rule.Name,
			Action: string(finding.Rule.Action),
		}
		for _, preceding := range finding.ShadowedBy {
			record.ShadowedBy = append(record.ShadowedBy, preceding.Name)
		}
		records = append(records, record)
	}
	return records
}

func writeText(w io.Writer, findings []engine.Finding) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, "No shadowed rules found.")
		return err
	}
	for _, finding := range findings {
		if _, err := fmt.Fprintf(w, "'%s' shadowed by:\n", finding.Rule.Name); err != nil {
			return err
		}
		for _, preceding := range finding.ShadowedBy {
			if _, err := fmt.Fprintf(w, "  - '%s'\n", preceding.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTable(w io.Writer, findings []engine.Finding) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "RULE\tACTION\tSHADOWED BY")
	for _, record := range toRecords(findings) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", record.Rule, record.Action, strings.Join(record.ShadowedBy, ", "))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, findings []engine.Finding) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toRecords(findings))
}

func writeYAML(w io.Writer, findings []engine.Finding) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(toRecords(findings))
}

func writeCSV(w io.Writer, findings []engine.Finding) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"rule", "action", "shadowed_by"}); err != nil {
		return err
	}
	for _, record := range toRecords(findings) {
		row := []string{record.Rule, record.Action, strings.Join(record.ShadowedBy, ";")}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Shadowing Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.4em 0.8em; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
<h1>Shadowing Report</h1>
{{if .}}
<table>
<tr><th>Rule</th><th>Action</th><th>Shadowed by</th></tr>
{{range .}}
<tr>
<td>{{.Rule}}</td>
<td>{{.Action}}</td>
<td>{{range $i, $name := .ShadowedBy}}{{if $i}}, {{end}}{{$name}}{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No shadowed rules found.</p>
{{end}}
</body>
</html>
`))

func writeHTML(w io.Writer, findings []engine.Finding) error {
	return htmlReport.Execute(w, toRecords(findings))
}
