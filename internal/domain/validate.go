package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate normalizes q and checks it can be stored. Failures wrap
// ErrValidation with a message fit for showing to the user.
func Validate(q *Question) error {
	q.Normalize()

	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Question":
			msgs = append(msgs, "question is required")
		case "Difficulty":
			msgs = append(msgs, fmt.Sprintf("difficulty must be one of Easy, Medium, Hard (got %q)", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
