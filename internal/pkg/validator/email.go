package validator

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Email checks that email is a bare address with a dotted domain.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email format")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 || !strings.Contains(parts[1], ".") {
		return errors.New("invalid email format")
	}

	return nil
}

func FullName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("full name is required")
	}
	return nil
}

// Slug accepts lower-case alphanumerics separated by single hyphens.
func Slug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return errors.New("slug may only contain lower-case letters, digits and single hyphens")
	}
	return nil
}

func Password(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return errors.New("password is too short")
	}
	return nil
}

func HexColor(color string) error {
	if !colorPattern.MatchString(color) {
		return errors.New("color must look like #RRGGBB")
	}
	return nil
}
