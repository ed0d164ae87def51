package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/conorfennell/prepdeck/internal/domain"
)

// WriteCSV writes questions as a CSV table: a header of column names in
// schema order, then one row per question.
func WriteCSV(w io.Writer, questions []domain.Question) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(domain.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, q := range questions {
		record := []string{
			strconv.FormatInt(q.ID, 10),
			q.Company,
			q.Role,
			q.Topic,
			string(q.Difficulty),
			q.Question,
			q.Answer,
			q.DateAdded,
			q.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for question %d: %w", q.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
