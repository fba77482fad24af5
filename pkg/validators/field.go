package validators

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

// ToUserFriendlyName converts camelCase or snake_case parameter names to a
// user-friendly form: "officeId" -> "Office id", "external_id" -> "External id".
func ToUserFriendlyName(fieldName string) string {
	if fieldName == "" {
		return fieldName
	}

	var words []string
	for _, part := range strings.Split(fieldName, "_") {
		start := 0
		for i, r := range part {
			if i > 0 && r >= 'A' && r <= 'Z' {
				words = append(words, part[start:i])
				start = i
			}
		}
		if start < len(part) {
			words = append(words, part[start:])
		}
	}
	if len(words) == 0 {
		return fieldName
	}

	for i, word := range words {
		if i == 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		} else {
			words[i] = strings.ToLower(word)
		}
	}
	return strings.Join(words, " ")
}

// ValidateRequired fails when a payload parameter is blank.
func ValidateRequired(value string, fieldName string) *ValidationResult {
	if len(strings.TrimSpace(value)) == 0 {
		userFriendlyName := ToUserFriendlyName(fieldName)
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s is required.", userFriendlyName)),
			WithSuggestedAction(fmt.Sprintf("Please provide a value for the %s parameter.", userFriendlyName)),
			WithValidationCode(ValidationCodeRequired),
		)
	}
	return NewValidationResult(true, fieldName,
		WithValue(value),
		WithValidationCode(ValidationCodeSuccess),
	)
}

// ValidateStringLength validates that a parameter meets minimum and maximum length requirements
func ValidateStringLength(value string, fieldName string, minLength, maxLength int) *ValidationResult {
	userFriendlyName := ToUserFriendlyName(fieldName)

	if len(value) < minLength {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s must be at least %d characters long.", userFriendlyName, minLength)),
			WithSuggestedAction(fmt.Sprintf("Please provide a %s with at least %d characters.", userFriendlyName, minLength)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	if len(value) > maxLength {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s must be no more than %d characters long.", userFriendlyName, maxLength)),
			WithSuggestedAction(fmt.Sprintf("Please provide a %s with no more than %d characters.", userFriendlyName, maxLength)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	return NewValidationResult(true, fieldName,
		WithValue(value),
		WithValidationCode(ValidationCodeSuccess),
	)
}

// ValidateEmail validates an email-typed payload parameter.
func ValidateEmail(value string, fieldName string) *ValidationResult {
	userFriendlyName := ToUserFriendlyName(fieldName)

	if len(value) == 0 {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s is required.", userFriendlyName)),
			WithSuggestedAction("Please provide a valid email address, e.g. 'name@example.com'."),
			WithValidationCode(ValidationCodeRequired),
		)
	}

	if !govalidator.IsEmail(value) {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("Please enter a valid %s.", userFriendlyName)),
			WithSuggestedAction("Please provide a valid email address, e.g. 'name@example.com'."),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	return NewValidationResult(true, fieldName,
		WithValue(value),
		WithValidationCode(ValidationCodeSuccess),
	)
}

// ValidateUUID validates a UUID-typed parameter, e.g. a caller-supplied idempotency key.
func ValidateUUID(value string, fieldName string) *ValidationResult {
	userFriendlyName := ToUserFriendlyName(fieldName)

	if !govalidator.IsUUID(value) {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s must be a valid UUID.", userFriendlyName)),
			WithSuggestedAction(fmt.Sprintf("Please provide a UUID for the %s parameter.", userFriendlyName)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	return NewValidationResult(true, fieldName,
		WithValue(value),
		WithValidationCode(ValidationCodeSuccess),
	)
}

// ValidatePositiveAmount validates a monetary parameter: numeric and strictly positive.
func ValidatePositiveAmount(value string, fieldName string) *ValidationResult {
	userFriendlyName := ToUserFriendlyName(fieldName)

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s must be a decimal number.", userFriendlyName)),
			WithSuggestedAction(fmt.Sprintf("Please provide a numeric value for the %s parameter.", userFriendlyName)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	if !amount.IsPositive() {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("%s must be greater than zero.", userFriendlyName)),
			WithSuggestedAction(fmt.Sprintf("Please provide a positive amount for the %s parameter.", userFriendlyName)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}

	return NewValidationResult(true, fieldName,
		WithValue(value),
		WithValidationCode(ValidationCodeSuccess),
	)
}
