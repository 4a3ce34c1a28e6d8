package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/bearer-auth-api/internal/model"
	"github.com/iliyamo/bearer-auth-api/internal/utils"
)

// MinPasswordLength is counted in characters.
const MinPasswordLength = 6

// emailPattern follows the mailto address grammar: a permissive local part
// and dot separated host labels of at most 63 characters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const (
	msgEmailBlank     = "Email can't be blank"
	msgEmailInvalid   = "Email is invalid"
	msgEmailTaken     = "Email has already been taken"
	msgFirstNameBlank = "First name can't be blank"
	msgLastNameBlank  = "Last name can't be blank"
)

// validateRegistration returns every problem with a normalized NewUser.
func validateRegistration(n model.NewUser) []string {
	var msgs []string
	switch {
	case n.Email == "":
		msgs = append(msgs, msgEmailBlank)
	case !emailPattern.MatchString(n.Email):
		msgs = append(msgs, msgEmailInvalid)
	}
	msgs = append(msgs, validatePassword(n.Password)...)
	if strings.TrimSpace(n.FirstName) == "" {
		msgs = append(msgs, msgFirstNameBlank)
	}
	if strings.TrimSpace(n.LastName) == "" {
		msgs = append(msgs, msgLastNameBlank)
	}
	return msgs
}

// validatePassword applies the password policy.  The upper bound is in
// bytes because bcrypt ignores everything past the 72nd.
func validatePassword(p string) []string {
	switch {
	case p == "":
		return []string{"Password can't be blank"}
	case utf8.RuneCountInString(p) < MinPasswordLength:
		return []string{fmt.Sprintf("Password is too short (minimum is %d characters)", MinPasswordLength)}
	case len(p) > utils.MaxPasswordBytes:
		return []string{fmt.Sprintf("Password is too long (maximum is %d characters)", utils.MaxPasswordBytes)}
	}
	return nil
}
