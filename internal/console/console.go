// Package console is the text front end of the bank. It reads one line per
// prompt, so it can be driven by a terminal or by any io.Reader.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/mybank/banking-system/internal/domain"
	"github.com/mybank/banking-system/internal/logging"
	"github.com/mybank/banking-system/internal/service"
)

type Options struct {
	Bank          *service.Bank
	In            io.Reader
	Out           io.Writer
	SessionSecret string
	SessionTTL    time.Duration
}

type Console struct {
	bank   *service.Bank
	in     io.Reader
	lines  *bufio.Scanner
	out    io.Writer
	secret string
	ttl    time.Duration
	sess   *session
}

func New(opts Options) *Console {
	return &Console{
		bank:   opts.Bank,
		in:     opts.In,
		lines:  bufio.NewScanner(opts.In),
		out:    opts.Out,
		secret: opts.SessionSecret,
		ttl:    opts.SessionTTL,
	}
}

// Run shows menus until the user exits or input ends. Saving is left to the
// caller.
func (c *Console) Run(ctx context.Context) error {
	c.println("Welcome to the Banking Management System")

	for {
		var (
			more bool
			err  error
		)
		switch {
		case c.sess == nil:
			more, err = c.mainMenu(ctx)
		case c.sess.user.Type == domain.UserTypeEmployee:
			more, err = c.employeeMenu(ctx)
		default:
			more, err = c.customerMenu(ctx)
		}

		if errors.Is(err, io.EOF) {
			more, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("console.Run: %w", err)
		}
		if !more {
			c.println("Goodbye!")
			return nil
		}
	}
}

func (c *Console) mainMenu(ctx context.Context) (bool, error) {
	choice, err := c.choose("Main menu", []string{
		"Sign up for a new account",
		"Log in to your account",
		"Exit",
	})
	if err != nil {
		return false, err
	}

	switch choice {
	case 1:
		return true, c.perform(ctx, "signup", c.signUp)
	case 2:
		return true, c.perform(ctx, "login", c.login)
	case 3:
		return false, nil
	}
	return true, nil
}

func (c *Console) employeeMenu(ctx context.Context) (bool, error) {
	choice, err := c.choose("Employee menu", []string{"Logout", "Exit"})
	if err != nil {
		return false, err
	}

	switch choice {
	case 1:
		return true, c.perform(ctx, "logout", c.logout)
	case 2:
		return false, nil
	}
	return true, nil
}

// perform runs one menu action. Errors are reported to the user and a panic
// is logged with its stack; only read errors end the session loop.
func (c *Console) perform(ctx context.Context, action string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic recovered",
				"action", action,
				"error", r,
				"stack", string(debug.Stack()),
			)
			c.println(msgUnexpected)
			err = nil
		}
	}()

	if err := fn(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		c.report(ctx, err)
	}
	return nil
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
