package storage

import (
	"strings"
)

// Filter narrows a listing. Every non-empty part must match; within a set
// any one value may match. The zero Filter matches everything.
type Filter struct {
	Topics    []string
	Roles     []string
	Companies []string
	// Text is matched case-insensitively as a substring of the question,
	// answer or notes, surrounding spaces included. Blank text is ignored.
	Text string
}

// IsZero reports whether f narrows nothing.
func (f Filter) IsZero() bool {
	return len(f.Topics) == 0 && len(f.Roles) == 0 && len(f.Companies) == 0 && strings.TrimSpace(f.Text) == ""
}

// predicate is one active filter rendered as SQL.
type predicate struct {
	clause string
	args   []any
}

func (f Filter) predicates() []predicate {
	var preds []predicate
	if p, ok := inPredicate("topic", f.Topics); ok {
		preds = append(preds, p)
	}
	if p, ok := inPredicate("role", f.Roles); ok {
		preds = append(preds, p)
	}
	if p, ok := inPredicate("company", f.Companies); ok {
		preds = append(preds, p)
	}
	if strings.TrimSpace(f.Text) != "" {
		pattern := "%" + escapeLike(f.Text) + "%"
		preds = append(preds, predicate{
			clause: `(question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`,
			args:   []any{pattern, pattern, pattern},
		})
	}
	return preds
}

// where folds the active predicates with AND. It returns an empty clause
// when nothing is active.
func (f Filter) where() (string, []any) {
	preds := f.predicates()
	if len(preds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		clauses = append(clauses, p.clause)
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func inPredicate(column string, values []string) (predicate, bool) {
	if len(values) == 0 {
		return predicate{}, false
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return predicate{clause: column + " IN (" + placeholders + ")", args: args}, true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
