package jbst

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/go-jbst/markup"
)

// ErrorKind classifies fatal compile errors.
type ErrorKind int

const (
	// Structural errors mean the input has a shape the compiler cannot read,
	// such as a malformed directive.
	Structural ErrorKind = iota + 1
	// Semantic errors mean a well-formed input carries an invalid value.
	Semantic
)

func (k ErrorKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Semantic:
		return "semantic"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrNilInput is returned when no template text was supplied.
var ErrNilInput = errors.New("jbst: nil input")

var errNameFixed = errors.New("template name already in use")

// CompileError aborts a compilation. Line and Column are 1-based and zero when
// unknown.
type CompileError struct {
	Kind    ErrorKind
	File    string
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	file := e.File
	if file == "" {
		file = "input"
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s:%d:%d] %s", file, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s] %s", file, e.Message)
}

func (ctx *CompileContext) errorf(kind ErrorKind, pos markup.Position, format string, args ...any) error {
	return &CompileError{
		Kind:    kind,
		File:    ctx.FilePath,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
