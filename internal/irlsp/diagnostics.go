package irlsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ssaflow/internal/irtext"
)

// ConvertParseError transforms a parse failure into a single LSP
// diagnostic. The IR reader stops at the first error (it does not attempt
// error recovery), so there is at most one.
func ConvertParseError(err error) []protocol.Diagnostic {
	parseErr, ok := err.(*irtext.ParseError)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    protocol.Range{},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("ssaflow"),
			Message:  err.Error(),
		}}
	}

	line := uint32(parseErr.Pos.Line - 1)
	col := uint32(parseErr.Pos.Column - 1)

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("ssaflow-reader"),
		Message:  parseErr.Msg,
	}}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
