package domain

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("question not found")
	ErrEmptyCollection = errors.New("no questions to choose from")
	ErrStorage         = errors.New("storage failure")
)
