package diag

import (
	"fmt"

	"stepper/internal/source"
)

type Note struct {
	Loc source.Loc
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Loc      source.Loc
	Notes    []Note
}

func New(sev Severity, code Code, loc source.Loc, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Loc:      loc,
		Message:  msg,
	}
}

func NewError(code Code, loc source.Loc, msg string) Diagnostic {
	return New(SevError, code, loc, msg)
}

func (d Diagnostic) WithNote(loc source.Loc, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}

// String renders "line:col: severity CODE: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Loc.Start, d.Severity, d.Code.ID(), d.Message)
}
