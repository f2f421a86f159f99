package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// classify with errors.Is.
var (
	ErrParse              = errors.New("parse error")
	ErrConflict           = errors.New("naming conflict")
	ErrCycleDetected      = errors.New("cycle detected")
	ErrDanglingReference  = errors.New("dangling reference")
	ErrRender             = errors.New("render failure")
	ErrWrite              = errors.New("write failure")
	ErrNotFound           = errors.New("entity not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ParseError describes a malformed source entity.
type ParseError struct {
	Source string
	Index  int
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: entity %d (%s): %s", e.Source, e.Index, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: entity %d: %s", e.Source, e.Index, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ConflictError lists every name present in both base and extension when
// the merge runs under the error-on-conflict strategy.
type ConflictError struct {
	Types      []string
	Properties []string
}

func (e *ConflictError) Error() string {
	var parts []string
	if len(e.Types) > 0 {
		parts = append(parts, "types: "+strings.Join(e.Types, ", "))
	}
	if len(e.Properties) > 0 {
		parts = append(parts, "properties: "+strings.Join(e.Properties, ", "))
	}
	return fmt.Sprintf("naming conflict between base and extension (%s)", strings.Join(parts, "; "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// CycleDetectedError reports a subClassOf chain that revisits a name.
type CycleDetectedError struct {
	Type string

	// Path is the chain walked from Type, ending with the revisited name.
	Path []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected in subClassOf chain of %s: %s", e.Type, strings.Join(e.Path, " -> "))
}

func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }

// RenderError wraps a failure to generate the document for one entity.
type RenderError struct {
	Entity string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Entity, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// WriteError wraps a storage failure for one output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// IsFatal reports whether err is a vocabulary-level error that must abort
// the run before any output is written.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrCycleDetected) ||
		errors.Is(err, ErrStorageUnavailable)
}

// WarningKind classifies a recoverable issue.
type WarningKind string

const (
	WarnParse             WarningKind = "parse"
	WarnDuplicate         WarningKind = "duplicate"
	WarnDanglingReference WarningKind = "dangling_reference"
	WarnMissingEntity     WarningKind = "missing_entity"
	WarnRenderFailure     WarningKind = "render_failure"
	WarnWriteFailure      WarningKind = "write_failure"
)

// Warning is a recoverable, per-entity issue collected into the
// generation report.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Entity  string      `json:"entity,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Entity == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Entity, w.Message)
}

// Skips reports whether the warning caused its entity to be dropped.
func (w Warning) Skips() bool {
	switch w.Kind {
	case WarnParse, WarnRenderFailure, WarnWriteFailure:
		return true
	}
	return false
}

// CompareWarnings orders warnings by entity, kind, then message.
func CompareWarnings(a, b Warning) int {
	if c := strings.Compare(a.Entity, b.Entity); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
		return c
	}
	return strings.Compare(a.Message, b.Message)
}
