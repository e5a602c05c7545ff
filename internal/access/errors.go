package access

// Error is a business-rule failure. Message is shown to the end user
// verbatim, or through the translation catalog keyed by Message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrDuplicatePending   = &Error{"duplicate_pending", "A request for this email is already pending approval"}
	ErrPreviouslyRejected = &Error{"previously_rejected", "Your previous request was rejected. Please contact the administrator."}
	ErrRequestPending     = &Error{"request_pending", "Your access request is pending approval. Please wait for administrator approval."}
	ErrRequestRejected    = &Error{"request_rejected", "Your access request was rejected. Please contact the administrator."}
	ErrWeakPassword       = &Error{"weak_password", "Your password is too weak. Please use a stronger password."}
	ErrInvalidEmail       = &Error{"invalid_email", "Please enter a valid email address"}
	ErrEmptyPassword      = &Error{"empty_password", "Please enter a password"}

	ErrRequestNotFound = &Error{"request_not_found", "User request not found"}
	ErrUserNotFound    = &Error{"user_not_found", "User not found"}
	ErrNotPending      = &Error{"not_pending", "This request has already been reviewed"}
	ErrPendingDelete   = &Error{"pending_delete", "Pending requests must be approved or rejected before they can be deleted"}
)
