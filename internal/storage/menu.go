package storage

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

const (
	defaultMenuRowLength = 80
	defaultMenuRowCount  = 5
)

type selectable interface {
	ValidatingSpec
	Selector() string
}

// Menu is a numbered, column laid out listing of a store's records.
type Menu[T selectable] struct {
	options []option[T]
	lines   []string
}

type option[T selectable] struct {
	id  string
	val T
}

func NewMenu[T selectable](st Storer[T]) *Menu[T] {
	m := &Menu[T]{}

	all := st.GetAll()
	for _, id := range slices.Sorted(maps.Keys(all)) {
		m.options = append(m.options, option[T]{id: id, val: all[id]})
	}
	slices.SortStableFunc(m.options, func(a, b option[T]) int {
		return cmp.Compare(a.val.Selector(), b.val.Selector())
	})
	m.build()

	return m
}

func (m *Menu[T]) build() {
	if len(m.options) == 0 {
		return
	}

	// Plus 7 for the number and spacing (nn. <val>  )
	colWidth := 1
	for _, o := range m.options {
		colWidth = max(colWidth, len(o.val.Selector())+7)
	}

	// Columns fill top to bottom, left to right. More rows than the default are used
	// when the options do not fit across.
	numCols := max(defaultMenuRowLength/colWidth, 1)
	numRows := max((len(m.options)+numCols-1)/numCols, defaultMenuRowCount)
	numRows = min(numRows, len(m.options))

	rows := make([]string, numRows)
	for i, o := range m.options {
		rows[i%numRows] += fmt.Sprintf("%2d. %-*s  ", i+1, colWidth-5, o.val.Selector())
	}

	m.lines = rows
}

// Lines returns the rendered menu.
func (m *Menu[T]) Lines() []string {
	return slices.Clone(m.lines)
}

// Select returns the id at 1-based position i, empty if out of range.
func (m *Menu[T]) Select(i int) string {
	if i < 1 || i > len(m.options) {
		return ""
	}
	return m.options[i-1].id
}

// Resolve accepts a menu number or an id and returns the matching record.
func (m *Menu[T]) Resolve(choice string) (string, T, bool) {
	if i, err := strconv.Atoi(choice); err == nil {
		if id := m.Select(i); id != "" {
			return id, m.options[i-1].val, true
		}
	}
	for _, o := range m.options {
		if o.id == choice {
			return o.id, o.val, true
		}
	}
	var zero T
	return "", zero, false
}
