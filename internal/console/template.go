package console

import (
	"bytes"
	"fmt"
	"slices"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-pulse/internal/display"
	"github.com/pixil98/go-pulse/internal/node"
	"github.com/pixil98/go-pulse/internal/session"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

const barWidth = 20

var statusTemplate = template.Must(template.New("status").Funcs(templateFuncs).Parse(
	`{{ .Role }} | {{ .Status }}{{ if .LocalID }} | id {{ .LocalID }}{{ end }}
{{- if and .HostID (ne .HostID .LocalID) }}
Host: {{ .HostID }}
{{- end }}
{{- if .Running }}
Health [{{ .Bar }}] {{ printf "%.1f" .Health }}  Score {{ .Score }}
{{- range .Targets }}
  #{{ .ID }} at ({{ printf "%.0f" .X }}, {{ printf "%.0f" .Y }}) fades in {{ .Remaining }}
{{- else }}
  No targets.
{{- end }}
{{- else if .Over }}
Game over. Final score: {{ .FinalScore }}
{{- else }}
No game running.
{{- end }}
{{- if .Peers }}
Peers ({{ len .Peers }}): {{ .Peers | join ", " }}
{{- end }}
{{- range $peer, $hits := .Contributions }}
  {{ $peer | trunc 8 }}: {{ $hits }} {{ if eq $hits 1 }}hit{{ else }}hits{{ end }}
{{- end }}
{{- if .Error }}
! {{ .Error }}
{{- end }}
`))

var helpTemplate = template.Must(template.New("help").Funcs(templateFuncs).Parse(
	`Commands:
{{- range . }}
  {{ .Usage | printf "%-14s" }} {{ .Help }}
{{- end }}
`))

type screen struct {
	Role          string
	Status        string
	LocalID       string
	HostID        string
	Running       bool
	Over          bool
	Health        float64
	Bar           string
	Score         int
	FinalScore    int
	Targets       []targetLine
	Peers         []string
	Contributions map[string]int
	Error         string
}

type targetLine struct {
	ID        int
	X, Y      float64
	Remaining string
}

func newScreen(v node.View) screen {
	s := screen{
		Role:          display.Label(v.Role.String()),
		Status:        display.Label(v.Status.String()),
		LocalID:       v.LocalID,
		HostID:        v.HostID,
		Running:       v.State.Running,
		Over:          v.State.Over,
		Health:        v.State.Health,
		Bar:           display.Bar(v.State.Health, v.State.HealthLimit(), barWidth),
		Score:         v.State.Score,
		FinalScore:    v.FinalScore,
		Peers:         slices.Clone(v.Peers),
		Contributions: v.Contributions,
		Error:         v.LastError,
	}
	if v.Role != session.RoleHost {
		s.Contributions = nil
	}
	for _, t := range v.State.Targets {
		s.Targets = append(s.Targets, targetLine{
			ID:        t.ID,
			X:         t.X,
			Y:         t.Y,
			Remaining: t.Remaining.Round(100 * time.Millisecond).String(),
		})
	}
	return s
}

// expandTemplate executes tmpl with data.
func expandTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
