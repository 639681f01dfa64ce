package report

import (
	"bytes"
	"fmt"
	"html/template"

	"bpaudit/pkg/scan"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Blueprint scan report</title></head>
<body>
<h1>Blueprint scan report</h1>
<p>{{.FilesScanned}} files scanned, {{.FilesSkipped}} skipped, projectiles scanned: {{.ProjectilesScanned}}.</p>

<h2>Findings ({{len .Findings}})</h2>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Severity</th><th>Code</th><th>Unit</th><th>Weapon</th><th>Message</th></tr>
{{range .Findings}}<tr><td>{{.Severity}}</td><td>{{.Code}}</td><td>{{.UnitID}}</td><td>{{.WeaponIndex}}</td><td>{{.Message}}</td></tr>
{{end}}</table>

<h2>Units ({{len .Units}})</h2>
{{range .Units}}<h3>{{.Unit.UnitID}}</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Weapon</th><th>Shots/Rack</th><th>Cycle (s)</th><th>Per-shot dmg</th><th>Nominal DPS</th><th>Effective DPS</th></tr>
{{range .Cadences}}<tr><td>{{.WeaponIndex}}</td><td>{{.ShotsPerRack}}</td><td>{{printf "%.3f" .CyclePeriodSec}}</td><td>{{printf "%.1f" .PerShotDamage}}</td><td>{{printf "%.1f" .NominalDPS}}</td><td>{{printf "%.1f" .EffectiveDPS}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

// RenderHTML renders a minimal human-readable HTML summary of a scan
// result: a findings table followed by a per-unit cadence table.
func RenderHTML(res *scan.Result) ([]byte, error) {
	return RenderHTMLDocument(Build(res))
}

// RenderHTMLDocument is RenderHTML for a Document already built by Build or
// BuildWithDeclaredDPS.
func RenderHTMLDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}
