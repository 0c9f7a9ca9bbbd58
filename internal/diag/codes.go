package diag

import (
	"fmt"
)

type Code uint16

const (
	// Fallback for codes without a table entry.
	UnknownCode Code = 0

	// Ownership and borrowing.
	BrkInfo                  Code = 3000
	BrkUseAfterMove          Code = 3001
	BrkPartialMoveViolation  Code = 3002
	BrkBorrowConflict        Code = 3003
	BrkBorrowWhileLent       Code = 3004
	BrkUnstableLoopOwnership Code = 3005
	BrkNotAPath              Code = 3006

	// I/O
	IOLoadFileError  Code = 4001
	IRSchemaMismatch Code = 4002
	IRMalformed      Code = 4003

	// brick.toml.
	ProjInvalidConfig Code = 5001
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	BrkInfo:                  "Ownership information",
	BrkUseAfterMove:          "Use after move",
	BrkPartialMoveViolation:  "Use of partially moved value",
	BrkBorrowConflict:        "Conflicting borrow",
	BrkBorrowWhileLent:       "Value moved or dropped while borrowed",
	BrkUnstableLoopOwnership: "Ownership does not stabilize across loop iterations",
	BrkNotAPath:              "Expression is not an addressable place",
	IOLoadFileError:          "I/O load file error",
	IRSchemaMismatch:         "IR schema version is not supported",
	IRMalformed:              "Malformed IR",
	ProjInvalidConfig:        "Invalid project configuration",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("BRK%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
