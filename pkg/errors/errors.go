package errors

import "fmt"

// MalformedFrame reports a structural violation of the wire format. The
// protocol does not distinguish sub-cases to the caller; Detail is for logs.
type MalformedFrame struct {
	Detail string
}

func (e *MalformedFrame) Error() string {
	return fmt.Sprintf("Malformed frame: %s", e.Detail)
}

type FieldTooLong struct {
	Field  string
	Length int
	Max    int
}

func (e *FieldTooLong) Error() string {
	return fmt.Sprintf("Field %s too long: %d bytes, maximum %d", e.Field, e.Length, e.Max)
}

type FieldCountMismatch struct {
	Expected int
	Actual   int
}

func (e *FieldCountMismatch) Error() string {
	return fmt.Sprintf("Payload field count mismatch: expected %d fields, got %d", e.Expected, e.Actual)
}

type UnknownCommand struct {
	Command string
}

func (e *UnknownCommand) Error() string {
	return fmt.Sprintf("Unknown command '%s'", e.Command)
}

type UnknownQuestion struct {
	Id string
}

func (e *UnknownQuestion) Error() string {
	return fmt.Sprintf("Unknown question id '%s'", e.Id)
}

type DelimiterInField struct {
	Field string
}

func (e *DelimiterInField) Error() string {
	return fmt.Sprintf("Field %s contains a protocol delimiter", e.Field)
}
