package domain

import "errors"

var (
	ErrInvalidID              = errors.New("invalid id")
	ErrInvalidName            = errors.New("invalid name")
	ErrInvalidCap             = errors.New("invalid cap")
	ErrDuplicateActivity      = errors.New("duplicate activity")
	ErrInvalidDuration        = errors.New("invalid duration")
	ErrInvalidGoal            = errors.New("invalid goal")
	ErrDuplicateQualification = errors.New("duplicate qualification")
	ErrInvalidAttachment      = errors.New("invalid attachment")
)
