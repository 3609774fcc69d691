package domain

import "errors"

var (
	ErrInvalidDocument   = errors.New("document has no pages")
	ErrJobAlreadyRunning = errors.New("an extraction job is already running")
	ErrJobNotFound       = errors.New("no extraction job found")
	ErrJobTerminal       = errors.New("job is already in a terminal state")
	ErrJobRunning        = errors.New("operation not allowed while a job is running")
	ErrPromptNotFound    = errors.New("prompt version not found")
	ErrNoRows            = errors.New("no compiled rows available")
)
