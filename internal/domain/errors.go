package domain

import (
	"errors"
	"fmt"
)

// All area errors are recoverable and surface to the command layer as
// user-facing text. The only fatal condition in the server is a
// malformed topology file at startup.
var (
	ErrNotFound          = errors.New("area not found")
	ErrAlreadyInState    = errors.New("area is already in that state")
	ErrPermissionDenied  = errors.New("you must be a CM or moderator to do that")
	ErrNotConnected      = errors.New("that area is not connected to your current area")
	ErrCapacityExceeded  = errors.New("the hub cannot hold any more areas")
	ErrInvalidTransition = errors.New("invalid lock transition")
)

// AreaLockedError blocks entry into a locked area. HasPassword tells
// the caller whether prompting for a password is worthwhile.
type AreaLockedError struct {
	HasPassword bool
}

func (e *AreaLockedError) Error() string {
	if e.HasPassword {
		return "that area is locked with a password"
	}
	return "that area is locked"
}

// IsLocked reports whether err is an entry-blocked error and, if so,
// whether the area carries a password.
func IsLocked(err error) (hasPassword, ok bool) {
	var le *AreaLockedError
	if errors.As(err, &le) {
		return le.HasPassword, true
	}
	return false, false
}

// UserError formats an error for delivery to a client, keeping the
// distinction between known kinds and unexpected internal failures.
func UserError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s.", capitalize(err.Error()))
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
