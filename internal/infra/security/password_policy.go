package security

const (
	defaultMinPasswordLength = 8
	defaultMinZxcvbnScore    = 2
)

// PasswordPolicy validates candidate passwords for the reset flow. A fresh
// validator is composed per call so the account's own identifiers feed the
// strength estimator.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy builds a policy from configuration, falling back to the
// built-in minimums for non-positive values.
func NewPasswordPolicy(minLength, minScore int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	if minScore <= 0 {
		minScore = defaultMinZxcvbnScore
	}
	return &PasswordPolicy{minLength: minLength, minScore: minScore}
}

// Validate applies the policy rules in order and returns the first
// violation. userInputs should carry the account email and display name.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	validator := NewPasswordValidator(
		MinLengthRule(p.minLength),
		RequireLetterRule(),
		RequireDigitRule(),
		RequirePasswordStrengthRule(p.minScore, userInputs...),
	)
	return validator.Validate(password)
}
