package domain

import (
	"strings"
)

// Difficulty is how hard an interview question is.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Difficulties lists every valid difficulty in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty matches s case-insensitively against the known
// difficulties. An empty string yields Easy.
func ParseDifficulty(s string) (Difficulty, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Easy, true
	}
	for _, d := range Difficulties {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return Difficulty(s), false
}

// Question is a single tracked interview question.
// Optional text fields are empty when absent.
type Question struct {
	ID         int64
	Company    string
	Role       string
	Topic      string
	Difficulty Difficulty `validate:"oneof=Easy Medium Hard"`
	Question   string     `validate:"required"`
	Answer     string
	DateAdded  string
	Notes      string
}

// Normalize trims the question text and defaults the difficulty.
// The date is left alone; defaulting it is the store's job.
func (q *Question) Normalize() {
	q.Question = strings.TrimSpace(q.Question)
	if d, ok := ParseDifficulty(string(q.Difficulty)); ok {
		q.Difficulty = d
	}
}

// Field names a column that can be filtered on.
type Field string

const (
	FieldTopic   Field = "topic"
	FieldRole    Field = "role"
	FieldCompany Field = "company"
)

// Columns is the schema order of the questions table, used for exports.
var Columns = []string{"id", "company", "role", "topic", "difficulty", "question", "answer", "date_added", "notes"}
