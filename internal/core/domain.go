package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType is the kind of a transaction. The backend does not
	// enforce the enum, so any string can come back from a select.
	TransactionType string

	Transaction struct {
		ID          string
		UserID      string
		Amount      decimal.Decimal
		Description string
		Type        TransactionType
		Category    string
		CreatedAt   string
	}

	StudyTask struct {
		ID          string
		Title       string
		Description string
		Deadline    string
		CreatedAt   string
	}

	// User is the account view returned by the backend after sign in/up.
	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Role      string    `json:"role,omitempty"`
		CreatedAt time.Time `json:"created_at"`

		// Attributes is the backend's user object as received, metadata
		// included. When set it is what the user encodes to.
		Attributes Record `json:"-"`
	}

	// Session is the opaque token bundle handed to the client. The server
	// never stores it.
	Session struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		ExpiresAt    int64  `json:"expires_at,omitempty"`
		RefreshToken string `json:"refresh_token,omitempty"`
		User         *User  `json:"user,omitempty"`
	}

	// AuthResult is what sign in and sign up return. Session is nil when the
	// backend requires email confirmation before issuing tokens.
	AuthResult struct {
		User    *User
		Session *Session
	}
)

// MarshalJSON passes the backend's user object through unchanged when one
// was captured.
func (u User) MarshalJSON() ([]byte, error) {
	if u.Attributes != nil {
		return json.Marshal(u.Attributes)
	}
	type plain User
	return json.Marshal(plain(u))
}

// UserFromRecord builds a User around the backend's own user object.
func UserFromRecord(r Record) *User {
	u := &User{
		ID:         r.String("id"),
		Email:      r.String("email"),
		Role:       r.String("role"),
		Attributes: r,
	}
	if t, err := time.Parse(time.RFC3339Nano, r.String("created_at")); err == nil {
		u.CreatedAt = t
	}
	return u
}

// Valid reports whether t is one of the two known kinds.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// TransactionFromRecord builds a typed view of a transactions row. Amounts
// that cannot be parsed are returned as an error.
func TransactionFromRecord(r Record) (Transaction, error) {
	amount, err := ParseAmount(r["amount"])
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Amount:      amount,
		Description: r.String("description"),
		Type:        TransactionType(r.String("type")),
		Category:    r.String("category"),
		CreatedAt:   r.String("created_at"),
	}, nil
}

// StudyTaskFromRecord builds a typed view of a study_tasks row.
func StudyTaskFromRecord(r Record) StudyTask {
	return StudyTask{
		ID:          r.String("id"),
		Title:       r.String("title"),
		Description: r.String("description"),
		Deadline:    r.String("deadline"),
		CreatedAt:   r.String("created_at"),
	}
}
