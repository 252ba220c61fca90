package storage

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

type mapStorer map[string]*testSpec

func (m mapStorer) Get(id string) (*testSpec, bool) {
	v, ok := m[id]
	return v, ok
}

func (m mapStorer) GetAll() map[string]*testSpec {
	return m
}

func TestMenu_Lines(t *testing.T) {
	tests := map[string]struct {
		records  mapStorer
		expLines []string
	}{
		"empty": {
			records: mapStorer{},
		},
		"sorted by name": {
			records: mapStorer{
				"b": {Name: "Nightmare"},
				"a": {Name: "Casual"},
				"c": {Name: "Standard"},
			},
			expLines: []string{
				" 1. Casual       ",
				" 2. Nightmare    ",
				" 3. Standard     ",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewMenu[*testSpec](tt.records)
			testutil.AssertEqual(t, "lines", strings.Join(m.Lines(), "\n"), strings.Join(tt.expLines, "\n"))
		})
	}
}

func TestMenu_FillsColumnsFirst(t *testing.T) {
	records := mapStorer{}
	for i := range 12 {
		records[fmt.Sprintf("p%02d", i)] = &testSpec{Name: fmt.Sprintf("P%02d", i)}
	}

	lines := NewMenu[*testSpec](records).Lines()

	testutil.AssertEqual(t, "rows", len(lines), 5)
	testutil.AssertEqual(t, "first row starts with 1", strings.HasPrefix(lines[0], " 1. P00"), true)
	testutil.AssertEqual(t, "first row continues with 6", strings.Contains(lines[0], " 6. P05"), true)
}

func TestMenu_Resolve(t *testing.T) {
	m := NewMenu[*testSpec](mapStorer{
		"hard": {Name: "Hard"},
		"easy": {Name: "Easy"},
	})

	tests := map[string]struct {
		choice  string
		expID   string
		expName string
		expOK   bool
	}{
		"by number": {choice: "2", expID: "hard", expName: "Hard", expOK: true},
		"by id":     {choice: "easy", expID: "easy", expName: "Easy", expOK: true},
		"zero":      {choice: "0"},
		"too large": {choice: "3"},
		"unknown":   {choice: "nightmare"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			id, spec, ok := m.Resolve(tt.choice)

			testutil.AssertEqual(t, "ok", ok, tt.expOK)
			testutil.AssertEqual(t, "id", id, tt.expID)
			if tt.expOK {
				testutil.AssertEqual(t, "name", spec.Name, tt.expName)
			}
		})
	}
}
