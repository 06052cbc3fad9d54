package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/service"
)

const passwordRules = "Your password must be at least 6 characters long and contain a lowercase letter, an uppercase letter and a digit."

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return domain.ErrInvalidName
	}
	return nil
}

// signUp collects a user and their account in one flow, creates both after
// confirmation, then logs the new user in.
func (c *Console) signUp(ctx context.Context) error {
	username, out, err := c.ask("Create a unique username (lowercase, no spaces)", func(s string) error {
		if c.bank.Users.IsTaken(s) {
			return domain.ErrUsernameTaken
		}
		return service.ValidateUsername(s)
	})
	if err != nil || out == Cancelled {
		return err
	}

	c.println(passwordRules)
	password, out, err := c.askSecret("Set your password", service.ValidatePassword)
	if err != nil || out == Cancelled {
		return err
	}

	firstName, out, err := c.ask("First name", notBlank)
	if err != nil || out == Cancelled {
		return err
	}
	lastName, out, err := c.ask("Last name", notBlank)
	if err != nil || out == Cancelled {
		return err
	}

	form, out, err := c.askAccount()
	if err != nil || out == Cancelled {
		return err
	}
	ok, out, err := c.confirm(fmt.Sprintf("Create a %s account on the %s plan?", form.Type, form.Plan))
	if err != nil || out == Cancelled {
		return err
	}
	if !ok {
		c.println("Sign-up cancelled.")
		return nil
	}

	user, err := c.bank.Users.SignUp(ctx, username, password, firstName, lastName)
	if err != nil {
		return err
	}
	form.UserID = user.ID
	if err := c.openAccount(ctx, form); err != nil {
		return err
	}

	return c.enter(ctx, username, password)
}

// askAccount collects everything needed to open an account except the owner.
func (c *Console) askAccount() (service.OpenAccountRequest, Outcome, error) {
	var req service.OpenAccountRequest

	typeNames := make([]string, len(domain.AccountTypes))
	for i, t := range domain.AccountTypes {
		typeNames[i] = string(t)
	}
	typeIdx, out, err := c.pick("Which kind of account do you want?", typeNames)
	if err != nil || out == Cancelled {
		return req, out, err
	}
	req.Type = domain.AccountTypes[typeIdx]

	planNames := make([]string, len(domain.Plans))
	for i, p := range domain.Plans {
		planNames[i] = string(p)
	}
	planIdx, out, err := c.pick("Which plan do you want?", planNames)
	if err != nil || out == Cancelled {
		return req, out, err
	}
	req.Plan = domain.Plans[planIdx]

	req.WithdrawLimit, out, err = c.askWithdrawLimit(req.Plan)
	if err != nil || out == Cancelled {
		return req, out, err
	}

	depositLimit, err := c.bank.Accounts.DepositLimit(req.Plan)
	if err != nil {
		return req, Cancelled, err
	}
	c.printf("Your deposit limit: %s USD\n", depositLimit.StringFixed(2))
	req.InitialDeposit, out, err = c.askAmount("Initial deposit (e.g. 100.00)", func(d decimal.Decimal) error {
		return service.ValidateDepositLimit(d, req.Plan)
	})
	if err != nil || out == Cancelled {
		return req, out, err
	}

	req.Pin, out, err = c.askSecret("Set a 4-digit PIN for your account", func(s string) error {
		if !domain.ValidPin(s) {
			return domain.ErrInvalidPin
		}
		return nil
	})
	return req, out, err
}

func (c *Console) openAccount(ctx context.Context, req service.OpenAccountRequest) error {
	acct, err := c.bank.Accounts.OpenAccount(ctx, req)
	if err != nil {
		return err
	}
	c.printf("Your account %d was created.\n", acct.Number)
	return nil
}

// openMissingAccount runs when a customer logs in without an account, which
// happens when sign-up was interrupted before the account was opened.
func (c *Console) openMissingAccount(ctx context.Context, userID int) (bool, error) {
	c.println("You do not have an account yet. Let's open one.")
	form, out, err := c.askAccount()
	if err != nil || out == Cancelled {
		return false, err
	}
	ok, out, err := c.confirm(fmt.Sprintf("Create a %s account on the %s plan?", form.Type, form.Plan))
	if err != nil || out == Cancelled || !ok {
		return false, err
	}
	form.UserID = userID
	if err := c.openAccount(ctx, form); err != nil {
		return false, err
	}
	return true, nil
}

// askWithdrawLimit lets Normal customers choose their limit; other plans get
// the plan's fixed limit without a prompt.
func (c *Console) askWithdrawLimit(plan domain.Plan) (decimal.Decimal, Outcome, error) {
	ceiling, err := c.bank.Accounts.WithdrawLimit(plan)
	if err != nil {
		return decimal.Zero, Cancelled, err
	}
	if plan != domain.PlanNormal {
		return ceiling, Submitted, nil
	}

	label := fmt.Sprintf("Maximum withdraw limit (up to %s USD)", ceiling.StringFixed(2))
	return c.askAmount(label, func(d decimal.Decimal) error {
		return service.ValidateWithdrawLimit(plan, d)
	})
}

func (c *Console) login(ctx context.Context) error {
	username, out, err := c.ask("Username", nil)
	if err != nil || out == Cancelled {
		return err
	}
	password, out, err := c.askSecret("Password", nil)
	if err != nil || out == Cancelled {
		return err
	}
	return c.enter(ctx, username, password)
}

func (c *Console) enter(ctx context.Context, username, password string) error {
	user, err := c.bank.Users.Login(ctx, username, password)
	if err != nil {
		return err
	}

	var account int
	if user.Type == domain.UserTypeCustomer {
		acct, err := c.bank.Accounts.AccountForUser(user.ID)
		if errors.Is(err, domain.ErrUnknownAccount) {
			var opened bool
			if opened, err = c.openMissingAccount(ctx, user.ID); err != nil {
				return err
			}
			if !opened {
				c.println("You need an account to log in.")
				return nil
			}
			acct, err = c.bank.Accounts.AccountForUser(user.ID)
		}
		if err != nil {
			return err
		}
		account = acct.Number
	}

	if err := c.startSession(ctx, *user, account); err != nil {
		return err
	}
	c.printf("Welcome, %s!\n", user.DisplayName())
	return nil
}

func (c *Console) logout(ctx context.Context) error {
	if err := c.bank.Users.Logout(ctx, c.sess.user.Username); err != nil {
		return err
	}
	c.endSession()
	c.println("You have been logged out.")
	return nil
}
