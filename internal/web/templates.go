package web

import (
	"html/template"
	"slices"
	"unicode/utf8"
)

var templateFuncs = template.FuncMap{
	"contains": slices.Contains[[]string, string],
	"truncate": truncate,
}

// truncate shortens s to n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
