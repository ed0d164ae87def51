package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterWhere(t *testing.T) {
	testCases := []struct {
		name       string
		filter     Filter
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "zero filter",
			filter:     Filter{},
			wantClause: "",
		},
		{
			name:       "blank text is ignored",
			filter:     Filter{Text: "   "},
			wantClause: "",
		},
		{
			name:       "text is matched as typed",
			filter:     Filter{Text: " tree "},
			wantClause: ` WHERE (question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`,
			wantArgs:   []any{"% tree %", "% tree %", "% tree %"},
		},
		{
			name:       "single set",
			filter:     Filter{Topics: []string{"OS", "DBMS"}},
			wantClause: " WHERE topic IN (?,?)",
			wantArgs:   []any{"OS", "DBMS"},
		},
		{
			name:   "all filters",
			filter: Filter{Topics: []string{"OS"}, Roles: []string{"SDE"}, Companies: []string{"Acme"}, Text: "50%_off"},
			wantClause: " WHERE topic IN (?) AND role IN (?) AND company IN (?) AND " +
				`(question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`,
			wantArgs: []any{"OS", "SDE", "Acme", `%50\%\_off%`, `%50\%\_off%`, `%50\%\_off%`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args := tc.filter.where()
			assert.Equal(t, tc.wantClause, clause)
			assert.Equal(t, tc.wantArgs, args)
			assert.Equal(t, tc.wantClause == "", tc.filter.IsZero())
		})
	}
}
