package console

import (
	"context"
	"errors"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
)

const msgUnexpected = "Something went wrong. Please try again."

func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, domain.ErrInvalidUsername):
		return "Usernames must be lowercase and cannot be blank."
	case errors.Is(err, domain.ErrInvalidPassword):
		return "Passwords need at least 6 characters including a lowercase letter, an uppercase letter and a digit."
	case errors.Is(err, domain.ErrInvalidName):
		return "Names cannot be blank."
	case errors.Is(err, domain.ErrUnknownUser):
		return "No such user."
	case errors.Is(err, domain.ErrUserDeactivated):
		return "This user has been deactivated."
	case errors.Is(err, domain.ErrLoginFailed):
		return "Wrong username or password."
	case errors.Is(err, domain.ErrUserLocked):
		return "Too many failed login attempts. This user is locked."
	case errors.Is(err, domain.ErrWrongPassword):
		return "Your old password is incorrect."
	case errors.Is(err, domain.ErrInvalidPin):
		return "The PIN must be exactly 4 digits."
	case errors.Is(err, domain.ErrPinMismatch):
		return "Incorrect PIN."
	case errors.Is(err, domain.ErrInvalidAmount):
		return "The amount must be greater than zero."
	case errors.Is(err, domain.ErrDepositLimitExceeded):
		return "The amount is over the deposit limit."
	case errors.Is(err, domain.ErrWithdrawLimitExceeded):
		return "The amount is over the withdraw limit."
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds."
	case errors.Is(err, domain.ErrOverdraftLimitExceeded):
		return "Overdraft limit reached. No further overdrafts are allowed."
	case errors.Is(err, domain.ErrUnknownAccount):
		return "Account not found."
	case errors.Is(err, domain.ErrAccountExists):
		return "This user already has an account."
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "This account has been deactivated."
	case errors.Is(err, domain.ErrSelfTransfer):
		return "You cannot transfer to your own account."
	case errors.Is(err, domain.ErrInvalidPlan):
		return "Unknown plan."
	case errors.Is(err, domain.ErrInvalidAccountType):
		return "Unknown account type."
	case errors.Is(err, domain.ErrInvalidRange):
		return "Dates cannot be in the future and the end date cannot come before the start date."
	case errors.Is(err, errSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, errInvalidNumber):
		return "Please enter a number."
	case errors.Is(err, errInvalidChoice):
		return "Please pick one of the listed options."
	case errors.Is(err, errInvalidDate):
		return "Please enter a date as dd-MM-yyyy."
	case errors.Is(err, errInvalidAnswer):
		return "Please answer y or n."
	default:
		return ""
	}
}

// report tells the user what went wrong. Errors without a message are logged
// and shown generically.
func (c *Console) report(ctx context.Context, err error) {
	if msg := messageFor(err); msg != "" {
		c.println(msg)
		return
	}
	logging.FromContext(ctx).Error("unhandled error", "error", err)
	c.println(msgUnexpected)
}
