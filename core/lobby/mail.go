package lobby

import texttmpl "text/template"

// resultsTmpl renders the instructor's results summary email.
var resultsTmpl = texttmpl.Must(texttmpl.New("quiz_results").Parse(`Hi,

The quiz "{{ .LobbyName }}" has ended.

Participants: {{ .MemberCount }}
{{ if .Results }}Grades:
{{ range .Results }}  - {{ .Username }}: {{ .Score }}
{{ end }}{{ else }}No grades were submitted.
{{ end }}
Students without a submitted grade are not listed.
`))
