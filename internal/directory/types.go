package directory

import "regexp"

// AccountType classifies a registered address.
type AccountType string

const (
	AccountPersonal AccountType = "personal"
	AccountCompany  AccountType = "company"
)

// AccountTypes lists the values the directory accepts, in display order.
func AccountTypes() []AccountType {
	return []AccountType{AccountPersonal, AccountCompany}
}

func (a AccountType) Valid() bool {
	return a == AccountPersonal || a == AccountCompany
}

// Purpose tags what an address is used for.
type Purpose string

const (
	PurposeStandard      Purpose = "standard"
	PurposeMarketing     Purpose = "marketing"
	PurposeNotifications Purpose = "notifications"
	PurposeNewsletter    Purpose = "newsletter"
)

// Purposes lists the values the directory accepts, in display order.
func Purposes() []Purpose {
	return []Purpose{PurposeStandard, PurposeMarketing, PurposeNotifications, PurposeNewsletter}
}

func (p Purpose) Valid() bool {
	for _, v := range Purposes() {
		if p == v {
			return true
		}
	}
	return false
}

// Person is the directory's view of an identity token and its addresses.
type Person struct {
	IdentityToken string   `json:"mitid_username"`
	Addresses     []string `json:"user_emails"`
}

// Registration associates a new address with an identity token.
type Registration struct {
	IdentityToken string      `json:"mitid_username"`
	Address       string      `json:"email"`
	Secret        string      `json:"password"`
	AccountType   AccountType `json:"account_type"`
	Purpose       Purpose     `json:"email_purpose"`
}

// User is a registered address as returned by the directory.
type User struct {
	Address       string      `json:"email"`
	AccountType   AccountType `json:"account_type"`
	Purpose       Purpose     `json:"email_purpose"`
	IdentityToken string      `json:"mitid_username"`
}

// Record is the body returned after a successful registration.
type Record struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidAddress reports whether s looks like local-part@domain.tld.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}
