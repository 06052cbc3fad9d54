package domain

type UserType string

const (
	UserTypeCustomer UserType = "CUSTOMER"
	UserTypeEmployee UserType = "EMPLOYEE"
)

func (t UserType) IsValid() bool {
	return t == UserTypeCustomer || t == UserTypeEmployee
}

type User struct {
	ID           int
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Type         UserType
	Active       bool

	// FailedLogins is never persisted; a restart clears it.
	FailedLogins int
}

func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
