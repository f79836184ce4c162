package errorx

var (
	ErrNotOwner       = Error{Unauthorized, "caller is not the owner"}
	ErrNothingToClaim = Error{NothingToClaim, "nothing to claim"}
	ErrPaused         = Error{Precondition, "platform is paused"}
	ErrReentrant      = Error{Precondition, "reentrant call rejected"}
)
