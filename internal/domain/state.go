package domain

// State is everything a save writes. Transactions holds only the entries
// recorded since the previous successful save.
type State struct {
	Users        []User
	Accounts     []Account
	Transactions []Transaction
}
