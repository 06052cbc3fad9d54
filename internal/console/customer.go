package console

import (
	"context"
	"fmt"
	"iter"

	"github.com/mybank/banking-system/internal/domain"
)

type menuItem struct {
	label  string
	action func(context.Context) error
}

func (c *Console) customerMenu(ctx context.Context) (bool, error) {
	items := []menuItem{
		{"Show balance", c.showBalance},
		{"Deposit", c.deposit},
		{"Withdraw", c.withdraw},
		{"Transfer", c.transfer},
		{"Favorite accounts", c.favoritesMenu},
		{"Transaction history", c.history},
		{"Reset password", c.resetPassword},
		{"Deactivate account", c.deactivate},
		{"Logout", c.logout},
	}
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.label
	}

	choice, err := c.choose("Customer menu", labels)
	if err != nil {
		return false, err
	}
	if choice == 0 {
		return true, nil
	}

	ctx, err = c.authorize(ctx)
	if err != nil {
		c.report(ctx, err)
		return true, nil
	}
	item := items[choice-1]
	return true, c.perform(ctx, item.label, item.action)
}

// askPin guards every sensitive action.
func (c *Console) askPin(ctx context.Context) (Outcome, error) {
	pin, out, err := c.askSecret("Enter your account PIN", nil)
	if err != nil || out == Cancelled {
		return out, err
	}
	return Submitted, c.bank.Accounts.ValidatePin(ctx, c.sess.account, pin)
}

func (c *Console) showBalance(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}
	acct, err := c.bank.Accounts.Account(c.sess.account)
	if err != nil {
		return err
	}
	c.printf("Your current balance: %s USD\n", acct.Balance.StringFixed(2))
	return nil
}

func (c *Console) deposit(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}
	acct, err := c.bank.Accounts.Account(c.sess.account)
	if err != nil {
		return err
	}

	c.printf("Your deposit limit is %s USD.\n", acct.DepositLimit.StringFixed(2))
	amount, out, err := c.askAmount("Amount to deposit (e.g. 100.00)", nil)
	if err != nil || out == Cancelled {
		return err
	}

	acct, err = c.bank.Accounts.Deposit(ctx, c.sess.account, amount)
	if err != nil {
		return err
	}
	c.printf("You deposited %s USD. Your new balance is %s USD.\n",
		amount.StringFixed(2), acct.Balance.StringFixed(2))
	return nil
}

func (c *Console) withdraw(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}
	acct, err := c.bank.Accounts.Account(c.sess.account)
	if err != nil {
		return err
	}

	c.printf("Your withdraw limit is %s USD.\n", acct.WithdrawLimit.StringFixed(2))
	amount, out, err := c.askAmount("Amount to withdraw (e.g. 100.00)", nil)
	if err != nil || out == Cancelled {
		return err
	}

	acct, err = c.bank.Accounts.Withdraw(ctx, c.sess.account, amount)
	if err != nil {
		return err
	}
	c.printf("You withdrew %s USD. Your new balance is %s USD.\n",
		amount.StringFixed(2), acct.Balance.StringFixed(2))
	return nil
}

// transfer skips the recipient confirmation when the recipient is already a
// favorite.
func (c *Console) transfer(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}
	if err := c.printFavorites(ctx); err != nil {
		return err
	}

	c.println("Pick an account from your favorites or enter any account number.")
	to, out, err := c.askInt("Recipient account number")
	if err != nil || out == Cancelled {
		return err
	}
	amount, out, err := c.askAmount("Amount to transfer", nil)
	if err != nil || out == Cancelled {
		return err
	}

	acct, err := c.bank.Accounts.Account(c.sess.account)
	if err != nil {
		return err
	}
	if !acct.HasFavorite(to) {
		name, err := c.bank.Accounts.HolderName(ctx, to)
		if err != nil {
			return err
		}
		ok, out, err := c.confirm(fmt.Sprintf("Transfer %s USD to %s?", amount.StringFixed(2), name))
		if err != nil || out == Cancelled {
			return err
		}
		if !ok {
			c.println("Transfer cancelled.")
			return nil
		}
	}

	if _, err := c.bank.Accounts.Transfer(ctx, c.sess.account, to, amount); err != nil {
		return err
	}
	c.println("Transfer completed successfully.")
	return nil
}

func (c *Console) favoritesMenu(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}

	choice, err := c.choose("Favorite accounts", []string{
		"Show favorite accounts",
		"Add a favorite account",
		"Remove a favorite account",
		"Back to the main menu",
	})
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		return c.printFavorites(ctx)
	case 2:
		return c.editFavorite(ctx, "Account number to add", "Add %s to your favorites?", "%s was added to your favorites.", c.bank.Accounts.AddFavorite)
	case 3:
		if err := c.printFavorites(ctx); err != nil {
			return err
		}
		return c.editFavorite(ctx, "Account number to remove", "Remove %s from your favorites?", "%s was removed from your favorites.", c.bank.Accounts.RemoveFavorite)
	}
	return nil
}

func (c *Console) editFavorite(ctx context.Context, label, question, done string, edit func(context.Context, int, int) error) error {
	number, out, err := c.askInt(label)
	if err != nil || out == Cancelled {
		return err
	}
	name, err := c.bank.Accounts.HolderName(ctx, number)
	if err != nil {
		return err
	}

	ok, out, err := c.confirm(fmt.Sprintf(question, name))
	if err != nil || out == Cancelled {
		return err
	}
	if !ok {
		c.println("Nothing was changed.")
		return nil
	}

	if err := edit(ctx, c.sess.account, number); err != nil {
		return err
	}
	c.printf(done+"\n", name)
	return nil
}

func (c *Console) printFavorites(ctx context.Context) error {
	favorites, err := c.bank.Accounts.Favorites(ctx, c.sess.account)
	if err != nil {
		return err
	}
	if len(favorites) == 0 {
		c.println("You have no favorite accounts yet.")
		return nil
	}

	c.println("Your favorite accounts:")
	for _, fav := range favorites {
		name, err := c.bank.Accounts.HolderName(ctx, fav.Number)
		if err != nil {
			return err
		}
		c.printf("  %d: %s\n", fav.Number, name)
	}
	return nil
}

func (c *Console) history(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}

	choice, err := c.choose("Transaction history", []string{
		"Show all transactions",
		"Show transactions within a date range",
		"Back to the main menu",
	})
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		c.printTransactions(c.bank.Transactions.Query(c.sess.account))
	case 2:
		from, out, err := c.askDate("Start date")
		if err != nil || out == Cancelled {
			return err
		}
		to, out, err := c.askDate("End date")
		if err != nil || out == Cancelled {
			return err
		}
		txs, err := c.bank.Transactions.QueryRange(c.sess.account, from, to)
		if err != nil {
			return err
		}
		c.printf("Transactions from %s until %s:\n", from.Format(dateLayout), to.Format(dateLayout))
		c.printTransactions(txs)
	}
	return nil
}

func (c *Console) printTransactions(txs iter.Seq[domain.Transaction]) {
	n := 0
	for tx := range txs {
		c.println("  " + tx.String())
		n++
	}
	if n == 0 {
		c.println("No transactions found.")
	}
}

func (c *Console) resetPassword(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}

	oldPassword, out, err := c.askSecret("Current password", nil)
	if err != nil || out == Cancelled {
		return err
	}
	c.println(passwordRules)
	newPassword, out, err := c.askSecret("New password", nil)
	if err != nil || out == Cancelled {
		return err
	}

	username, err := sessionUsername(ctx)
	if err != nil {
		return err
	}
	if err := c.bank.Users.ResetPassword(ctx, username, oldPassword, newPassword); err != nil {
		return err
	}
	c.println("Your password was changed.")
	return nil
}

// deactivate closes both the account and the user, then logs out. It cannot
// be undone.
func (c *Console) deactivate(ctx context.Context) error {
	if out, err := c.askPin(ctx); err != nil || out == Cancelled {
		return err
	}

	ok, out, err := c.confirm("Deactivate your account? This cannot be undone.")
	if err != nil || out == Cancelled {
		return err
	}
	if !ok {
		c.println("Your account stays open.")
		return nil
	}

	username, err := sessionUsername(ctx)
	if err != nil {
		return err
	}
	if err := c.bank.Accounts.Deactivate(ctx, c.sess.account); err != nil {
		return err
	}
	if err := c.bank.Users.Deactivate(ctx, username); err != nil {
		return err
	}
	c.println("Your account was deactivated. Goodbye!")
	c.endSession()
	return nil
}
