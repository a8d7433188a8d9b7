package report

import "sort"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Process Monitoring Report</title>
<style>
  body { font-family: sans-serif; margin: 2em; color: #222; }
  h1 { font-size: 1.4em; }
  h2 { font-size: 1.1em; margin-top: 1.5em; text-transform: capitalize; }
  .banner { padding: 0.8em 1em; border-radius: 4px; font-weight: bold; }
  .summary { margin: 1em 0; }
  .partial { color: #a15c00; font-weight: bold; }
  table { border-collapse: collapse; width: 100%; margin-top: 0.5em; }
  th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; }
  th { background: #f0f0f0; }
  .failed  { background: #fdd; color: #900; }
  .running { background: #def; color: #069; }
  .pending { background: #ffe9c4; color: #850; }
  .success { background: #dfd; color: #070; }
  .norun   { background: #eee; color: #666; }
  .meta { color: #888; font-size: 0.85em; margin-top: 2em; }
</style>
</head>
<body>
<h1>Process Monitoring Report</h1>
<div class="banner {{statusClass .Overall}}">Overall status: {{.Overall}}</div>
<p class="summary">{{.Summary}}</p>
{{if .Partial}}<p class="partial">Partial report — no data from: {{range $i, $p := .Excluded}}{{if $i}}, {{end}}{{$p}}{{end}}.</p>{{end}}
{{range .Platforms}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Process</th><th>Status</th><th>Tasks</th><th>Details</th></tr>
{{range .Groups}}
<tr class="{{statusClass .Status}}">
  <td>{{.Name}}</td>
  <td>{{.Status}}</td>
  <td>{{.TaskCount}}</td>
  <td>{{.Summary}}{{if .FailedTasks}} Failed: {{range $i, $t := .FailedTasks}}{{if $i}}, {{end}}{{$t}}{{end}}.{{end}}{{if .RunningTasks}} Running: {{range $i, $t := .RunningTasks}}{{if $i}}, {{end}}{{$t}}{{end}}.{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
<p class="meta">Generated at {{.GeneratedAt}}</p>
</body>
</html>
`
