// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAccessDenied     = "auth.access_denied"

	// Access
	KeyAccessBookNotRegistered = "access.book_not_registered"

	// Unlocks
	KeyUnlockRecorded  = "unlock.recorded"
	KeyUnlockDuplicate = "unlock.duplicate"

	// License inheritance. The analysis endpoints only ever surface these four
	// messages so clients can offer targeted remediation.
	KeyInheritanceNotFound       = "license_inheritance.not_found"
	KeyInheritanceUnauthorized   = "license_inheritance.unauthorized"
	KeyInheritanceInvalidLicense = "license_inheritance.invalid_license"
	KeyInheritanceGeneric        = "license_inheritance.generic"

	// Licenses
	KeyLicenseNotFound = "license.not_found"

	// Chapter records
	KeyChapterRecordNotFound = "chapter_record.not_found"
	KeyChapterRecordStored   = "chapter_record.stored"

	// Payments
	KeyPaymentPending  = "payment.pending"
	KeyPaymentNotReady = "payment.not_ready"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
