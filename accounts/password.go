package accounts

import (
	"unicode"

	"github.com/warp/finhub/generic"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt hashes.
const MaxPasswordBytes = 72

// Requirement is one line of the password checklist a form shows while
// the user types.
type Requirement struct {
	Label string `json:"label"`
	Met   bool   `json:"met"`
}

type passwordRule struct {
	label   string
	message string
	check   func(string) bool
}

func hasRune(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if pred(r) {
				return true
			}
		}
		return false
	}
}

var passwordRules = []passwordRule{
	{
		label:   "At least 8 characters",
		message: "Password must be at least 8 characters.",
		check:   func(s string) bool { return len([]rune(s)) >= MinPasswordLength },
	},
	{
		label:   "One uppercase letter",
		message: "Password must include at least one uppercase letter.",
		check:   hasRune(unicode.IsUpper),
	},
	{
		label:   "One lowercase letter",
		message: "Password must include at least one lowercase letter.",
		check:   hasRune(unicode.IsLower),
	},
	{
		label:   "One number",
		message: "Password must include at least one number.",
		check:   hasRune(unicode.IsDigit),
	},
	{
		label:   "At most 72 bytes",
		message: "Password must be at most 72 bytes.",
		check:   func(s string) bool { return len(s) <= MaxPasswordBytes },
	},
}

// PasswordChecklist reports each rule for the password typed so far.
func PasswordChecklist(password string) []Requirement {
	out := make([]Requirement, len(passwordRules))
	for i, r := range passwordRules {
		out[i] = Requirement{Label: r.label, Met: r.check(password)}
	}
	return out
}

// ValidatePassword returns the first rule the password breaks.
func ValidatePassword(password string) error {
	for _, r := range passwordRules {
		if !r.check(password) {
			return generic.Invalid("password", r.message)
		}
	}
	return nil
}

// ValidateNewPassword also checks the confirmation field.
func ValidateNewPassword(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return generic.Invalid("confirmPassword", "Passwords do not match.")
	}
	return nil
}
