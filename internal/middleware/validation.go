package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var nicknamePattern = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 4000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateNickname validates a login nickname.
func ValidateNickname(nickname string) error {
	if !nicknamePattern.MatchString(nickname) {
		return errors.New("nickname must be 3-50 lowercase letters, digits or underscores")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return errors.New("password exceeds maximum length")
	}
	return nil
}

// ValidateListingTitle validates a listing title.
func ValidateListingTitle(title string) error {
	if len(title) == 0 {
		return errors.New("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > 200 {
		return errors.New("title exceeds maximum length")
	}
	return nil
}
