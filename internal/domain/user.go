// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxUserIDLen = 36

var ErrUserIDEmpty = errors.New("user id empty")

type (
	UserID  string
	GroupID string
	CarID   string
)

// ValidateUserID keeps ad-hoc length checks out of adapters.
func ValidateUserID(id UserID) error {
	if id == "" {
		return ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return errors.New("user id too long")
	}
	return nil
}
