package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
)

// ValidateName accepts any name of at least two characters after trimming.
func ValidateName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if utf8.RuneCountInString(name) < 2 {
		return "", &domain.ValidationError{Field: "name", Code: CodeInvalidName}
	}
	return name, nil
}

func ValidateEmail(input string) (string, error) {
	email := strings.TrimSpace(input)
	if !emailPattern.MatchString(email) {
		return "", &domain.ValidationError{Field: "email", Code: CodeInvalidEmail}
	}
	return email, nil
}

// ValidatePhone expects 10 to 15 digits, optionally prefixed with '+'.
func ValidatePhone(input string) (string, error) {
	phone := strings.TrimSpace(input)
	if !phonePattern.MatchString(phone) {
		return "", &domain.ValidationError{Field: "phone", Code: CodeInvalidPhone}
	}
	return phone, nil
}
