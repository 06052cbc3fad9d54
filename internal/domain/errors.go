package domain

import "errors"

var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("username must be non-blank and contain no uppercase letters")
	ErrInvalidPassword = errors.New("password must be at least 6 characters with a lowercase letter, an uppercase letter and a digit")
	ErrInvalidName     = errors.New("first and last name cannot be blank")
	ErrUnknownUser     = errors.New("unknown user")
	ErrUserDeactivated = errors.New("user deactivated")
	ErrLoginFailed     = errors.New("login failed")
	ErrUserLocked      = errors.New("user locked after too many failed login attempts")
	ErrWrongPassword   = errors.New("old password does not match")

	ErrInvalidPin             = errors.New("pin must be exactly 4 digits")
	ErrPinMismatch            = errors.New("pin does not match")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrDepositLimitExceeded   = errors.New("deposit limit exceeded")
	ErrWithdrawLimitExceeded  = errors.New("withdraw limit exceeded")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrOverdraftLimitExceeded = errors.New("overdraft limit reached")
	ErrUnknownAccount         = errors.New("unknown account")
	ErrAccountExists          = errors.New("user already has an account")
	ErrAccountDeactivated     = errors.New("account deactivated")
	ErrSelfTransfer           = errors.New("cannot transfer to same account")
	ErrInvalidPlan            = errors.New("invalid account plan")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidRange           = errors.New("invalid date range")
)
