// module_errors.go - Load failure taxonomy shared by the resolver, registry and loader.

package main

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match with errors.Is(err, ErrDepack) and friends.
var (
	ErrSystem = errors.New("system error")
	ErrFormat = errors.New("unknown format")
	ErrDepack = errors.New("depack failed")
	ErrLoad   = errors.New("load failed")
)

// LoadFailure carries the failure kind, the operation that failed and the
// underlying cause.
type LoadFailure struct {
	Kind error
	Op   string
	Err  error
}

func (e *LoadFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *LoadFailure) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func systemError(op string, err error) error { return &LoadFailure{Kind: ErrSystem, Op: op, Err: err} }
func formatError(op string, err error) error { return &LoadFailure{Kind: ErrFormat, Op: op, Err: err} }
func depackError(op string, err error) error { return &LoadFailure{Kind: ErrDepack, Op: op, Err: err} }
func loadError(op string, err error) error   { return &LoadFailure{Kind: ErrLoad, Op: op, Err: err} }

// failureKindName maps an error to the short kind name printed by the CLI.
func failureKindName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSystem):
		return "system"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrDepack):
		return "depack"
	case errors.Is(err, ErrLoad):
		return "load"
	default:
		return "error"
	}
}
