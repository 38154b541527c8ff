package actions

import "errors"

// Level is the severity a host should use when displaying a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the single user-visible outcome of an action.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	// Path is the artifact that was produced, if any.
	Path string `json:"path,omitempty"`
	// NeedsConfirmation is set when the action must be repeated with
	// explicit confirmation before it does anything.
	NeedsConfirmation bool `json:"needs_confirmation,omitempty"`
	// Err is the underlying failure for warning and error notices.
	Err error `json:"-"`
}

// Failed reports whether the action did not complete.
func (n Notice) Failed() bool {
	return n.Err != nil
}

// IsPrecondition reports whether the action was refused before any
// external tool ran.
func (n Notice) IsPrecondition() bool {
	var pe *PreconditionError
	return errors.As(n.Err, &pe)
}

// PreconditionError means the target is not in a state the action accepts.
type PreconditionError struct {
	Message string
	// Warning marks conditions the user can fix in place, like unsaved edits.
	Warning bool
}

func (e *PreconditionError) Error() string { return e.Message }

func info(msg, path string) Notice {
	return Notice{Level: LevelInfo, Message: msg, Path: path}
}

func failure(msg string, err error) Notice {
	return Notice{Level: LevelError, Message: msg, Err: err}
}

func refused(pe *PreconditionError) Notice {
	level := LevelError
	if pe.Warning {
		level = LevelWarning
	}
	return Notice{Level: level, Message: pe.Message, Err: pe}
}
