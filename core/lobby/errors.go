package lobby

import "errors"

var (
	// errors
	ErrNotFound         = errors.New("lobby not found")
	ErrNotOwner         = errors.New("only the owning instructor may perform this action")
	ErrDuplicateName    = errors.New("you already have an open lobby with this name")
	ErrLobbyClosed      = errors.New("lobby is closed")
	ErrAlreadyStarted   = errors.New("quiz has already started")
	ErrNotRunning       = errors.New("quiz is not running")
	ErrBankLocked       = errors.New("question bank cannot be changed after the quiz has started")
	ErrNotMember        = errors.New("user is not a member of this lobby")
	ErrAlreadySubmitted = errors.New("grade has already been submitted")
)
