package core

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleMember   Role = "member"
	RoleLeader   Role = "leader"
	RoleSuperior Role = "superior"
)

const (
	MaxCategoryLength    = 100
	MaxDescriptionLength = 500

	// A value has at most MaxValueScale decimal places and MaxValueDigits
	// significant digits, which keeps totals cheap to add and print and
	// fits a Decimal128.
	MaxValueScale  = 10
	MaxValueDigits = 28
)

type (
	Role string

	// Report is a single submission. It is never modified once stored.
	Report struct {
		ID          string
		OwnerID     string
		Category    string
		Value       decimal.Decimal
		Description string
		CreatedAt   time.Time
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		Role         Role
		CreatedAt    time.Time
	}
)

var (
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryTooLong    = errors.New("category too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmptyEmail         = errors.New("empty email")
	ErrValueOutOfRange    = errors.New("value out of range")
)

// ParseRole accepts the lowercase role names.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLeader, RoleSuperior:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

func (r Report) Validate() error {
	category := strings.TrimSpace(r.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if len(category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !ValueInRange(r.Value) {
		return ErrValueOutOfRange
	}
	return nil
}

// ValueInRange checks scale and digit count from the exponent before
// touching the coefficient, so huge exponents are rejected without
// rescaling.
func ValueInRange(v decimal.Decimal) bool {
	exp := v.Exponent()
	if exp < -MaxValueScale || exp > MaxValueDigits {
		return false
	}
	digits := len(new(big.Int).Abs(v.Coefficient()).String())
	if exp > 0 {
		digits += int(exp)
	}
	return digits <= MaxValueDigits
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
