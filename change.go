package jdb

import (
	"fmt"
)

type (
	// Change describes one committed modification of a table.
	Change struct {
		Table     string
		Op        ChangeOp
		Key       string
		Record    Record
		OldRecord Record
	}

	ChangeOp int
)

const (
	ChangeNone   ChangeOp = 0
	ChangePut    ChangeOp = 1
	ChangeDelete ChangeOp = 2
)

func (v ChangeOp) String() string {
	switch v {
	case ChangeNone:
		return "none"
	case ChangePut:
		return "put"
	case ChangeDelete:
		return "delete"
	default:
		return fmt.Sprintf("ChangeOp(%d)", int(v))
	}
}

func (chg *Change) String() string {
	return fmt.Sprintf("%v %s/%s", chg.Op, chg.Table, chg.Key)
}

// HasOldRecord is false for inserts of new keys.
func (chg *Change) HasOldRecord() bool {
	return chg.OldRecord != nil
}

// notify reports changes after they are written; it runs under the engine
// lock, so callbacks must not call back into the same engine.
func (e *Engine) notify(changes ...Change) {
	if e.onChange == nil {
		return
	}
	for i := range changes {
		e.onChange(&changes[i])
	}
}
