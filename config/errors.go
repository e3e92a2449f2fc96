package config

import "errors"

// ErrInvalidConfig wraps every configuration and rules file problem.
var ErrInvalidConfig = errors.New("invalid configuration")
