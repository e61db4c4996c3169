package validation

import (
	"errors"
	"regexp"
	"strings"
)

var ErrPhoneInvalid = errors.New("phone number must be in E.164 format, e.g. +15551234567")

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// NormalizePhone strips spaces, dashes, dots and parentheses.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func ValidatePhone(phone string) error {
	if !e164.MatchString(phone) {
		return ErrPhoneInvalid
	}
	return nil
}
