package superlifter

import "errors"

var (
	ErrUnknownBucket   = errors.New("bucket you are trying to address is not registered")
	ErrDuplicateBucket = errors.New("bucket with this name is already registered")
	ErrNotRunning      = errors.New("lifter is not running")

	ErrInvalidTrigger = errors.New("trigger configuration is invalid")
)
