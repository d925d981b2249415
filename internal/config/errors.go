package config

import "errors"

var (
	// ErrNoNodes is returned when neither nodes nor mkube.base_url is configured.
	ErrNoNodes = errors.New("at least one node or mkube.base_url must be configured")

	// ErrInvalidNode is returned when a node entry is missing name or address.
	ErrInvalidNode = errors.New("node entry must have name and address")

	// ErrDuplicateNode is returned when two node entries share a name.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrPortConflict is returned when the console and metrics ports collide.
	ErrPortConflict = errors.New("listen_port and metrics_port must differ")
)
