package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// parser
	SynInfo       Code = 2000
	SynError      Code = 2001
	SynBadProgram Code = 2002

	// instrumentation
	InsInfo              Code = 3000
	InsUnsupportedSyntax Code = 3001
	InsUnsupportedTarget Code = 3002
	InsUnknownNode       Code = 3003
	InsBackendRejected   Code = 3004

	// traced run
	RunInfo      Code = 4000
	RunException Code = 4001
	RunStepLimit Code = 4002
	RunWorker    Code = 4003
)

var codeTitle = map[Code]string{
	UnknownCode:          "Unknown error",
	SynInfo:              "Syntax information",
	SynError:             "Syntax error",
	SynBadProgram:        "Program could not be parsed",
	InsInfo:              "Instrumentation information",
	InsUnsupportedSyntax: "Unsupported syntax",
	InsUnsupportedTarget: "Unsupported assignment target",
	InsUnknownNode:       "Unknown node kind",
	InsBackendRejected:   "Instrumented program rejected by the engine",
	RunInfo:              "Run information",
	RunException:         "Uncaught exception",
	RunStepLimit:         "Step limit reached",
	RunWorker:            "Worker failure",
}

// ID returns the stable short form, e.g. "SYN2001".
func (c Code) ID() string {
	switch {
	case c >= 2000 && c < 3000:
		return fmt.Sprintf("SYN%04d", uint16(c))
	case c >= 3000 && c < 4000:
		return fmt.Sprintf("INS%04d", uint16(c))
	case c >= 4000 && c < 5000:
		return fmt.Sprintf("RUN%04d", uint16(c))
	}
	return fmt.Sprintf("E%04d", uint16(c))
}

// Title returns the human-readable title of the code.
func (c Code) Title() string {
	if t, ok := codeTitle[c]; ok {
		return t
	}
	return codeTitle[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
