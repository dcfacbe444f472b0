package registry

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

func validUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// strongCredential: at least 6 characters with a letter, a digit and a
// symbol. bcrypt ignores everything past 72 bytes, so longer ones are refused.
func strongCredential(pwd string) bool {
	if utf8.RuneCountInString(pwd) < 6 || len(pwd) > 72 {
		return false
	}
	var hasLetter, hasDigit, hasSymbol bool
	for _, ch := range pwd {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSymbol = true
		}
	}
	return hasLetter && hasDigit && hasSymbol
}
