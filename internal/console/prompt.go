package console

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// Outcome tells a prompt's caller whether the user answered or backed out.
type Outcome int

const (
	Submitted Outcome = iota
	Cancelled
)

// cancelWord typed at any prompt returns Cancelled.
const cancelWord = "back"

const dateLayout = "02-01-2006"

var (
	errInvalidNumber = errors.New("not a number")
	errInvalidChoice = errors.New("not one of the listed options")
	errInvalidDate   = errors.New("not a dd-MM-yyyy date")
	errInvalidAnswer = errors.New("not y or n")
)

func (c *Console) readLine() (string, error) {
	if !c.lines.Scan() {
		if err := c.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.lines.Text()), nil
}

// readSecret reads without echo when input is a terminal.
func (c *Console) readSecret() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		c.println("")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return c.readLine()
}

// askWith prompts until validate accepts the answer or the user cancels.
func (c *Console) askWith(read func() (string, error), label string, validate func(string) error) (string, Outcome, error) {
	for {
		c.printf("%s (type %q to go back): ", label, cancelWord)
		s, err := read()
		if err != nil {
			return "", Cancelled, err
		}
		if strings.EqualFold(s, cancelWord) {
			return "", Cancelled, nil
		}
		if validate != nil {
			if err := validate(s); err != nil {
				msg := messageFor(err)
				if msg == "" {
					msg = err.Error()
				}
				c.println(msg)
				continue
			}
		}
		return s, Submitted, nil
	}
}

func (c *Console) ask(label string, validate func(string) error) (string, Outcome, error) {
	return c.askWith(c.readLine, label, validate)
}

func (c *Console) askSecret(label string, validate func(string) error) (string, Outcome, error) {
	return c.askWith(c.readSecret, label, validate)
}

func (c *Console) askInt(label string) (int, Outcome, error) {
	var n int
	_, out, err := c.ask(label, func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return errInvalidNumber
		}
		n = v
		return nil
	})
	return n, out, err
}

func (c *Console) askAmount(label string, validate func(decimal.Decimal) error) (decimal.Decimal, Outcome, error) {
	var amount decimal.Decimal
	_, out, err := c.ask(label, func(s string) error {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return errInvalidNumber
		}
		if validate != nil {
			if err := validate(v); err != nil {
				return err
			}
		}
		amount = v
		return nil
	})
	return amount, out, err
}

func (c *Console) askDate(label string) (time.Time, Outcome, error) {
	var date time.Time
	_, out, err := c.ask(label+" (dd-MM-yyyy)", func(s string) error {
		v, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return errInvalidDate
		}
		date = v
		return nil
	})
	return date, out, err
}

// pick lists options numbered from 1 and returns the chosen index.
func (c *Console) pick(label string, options []string) (int, Outcome, error) {
	for i, o := range options {
		c.printf("  %d. %s\n", i+1, o)
	}
	var idx int
	_, out, err := c.ask(label, func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(options) {
			return errInvalidChoice
		}
		idx = n - 1
		return nil
	})
	return idx, out, err
}

// confirm asks a yes/no question. Cancelled means the user typed the cancel
// word rather than answering.
func (c *Console) confirm(question string) (bool, Outcome, error) {
	var yes bool
	_, out, err := c.ask(question+" (y/n)", func(s string) error {
		switch strings.ToLower(s) {
		case "y", "yes":
			yes = true
		case "n", "no":
			yes = false
		default:
			return errInvalidAnswer
		}
		return nil
	})
	return yes, out, err
}

// choose prints a menu and reads one selection. It returns 0 after telling
// the user when the input is not a listed option.
func (c *Console) choose(title string, items []string) (int, error) {
	c.println("")
	c.println(title)
	for i, item := range items {
		c.printf("  %d. %s\n", i+1, item)
	}
	s, err := c.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > len(items) {
		c.printf("Please select an option (1-%d).\n", len(items))
		return 0, nil
	}
	return n, nil
}
