// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	WalletAddressLength = 42
	MinIPAssetIDLength  = 20
)

var (
	validate        *validator.Validate
	walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("wallet_address", validateWalletAddress)
	validate.RegisterValidation("ip_asset_id", validateIPAssetID)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateWalletAddress(fl validator.FieldLevel) bool {
	return IsWalletAddress(fl.Field().String())
}

func validateIPAssetID(fl validator.FieldLevel) bool {
	return IsIPAssetID(fl.Field().String())
}

// IsWalletAddress accepts 42-character 0x-prefixed hex addresses.
func IsWalletAddress(address string) bool {
	return len(address) == WalletAddressLength && walletAddressRe.MatchString(address)
}

func IsIPAssetID(id string) bool {
	return len(strings.TrimSpace(id)) >= MinIPAssetIDLength
}

// ValidateWalletAddress returns a field-level ValidationError for bad addresses.
func ValidateWalletAddress(field, address string) error {
	if address == "" {
		return NewValidationError(field, field+" is required")
	}
	if !IsWalletAddress(address) {
		return NewValidationError(field, field+" must be a 42-character 0x-prefixed address")
	}
	return nil
}

func ValidateIPAssetID(field, id string) error {
	if id == "" {
		return NewValidationError(field, field+" is required")
	}
	if !IsIPAssetID(id) {
		return NewValidationError(field, field+" must be at least 20 characters")
	}
	return nil
}

// Validation tags for common fields
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []FieldError {
	var fieldErrors []FieldError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	var v *ValidationError
	if errors.As(err, &v) {
		fieldErrors = append(fieldErrors, FieldError{Field: v.Field, Tag: "invalid", Message: v.Message})
	}

	return fieldErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "wallet_address":
		return e.Field() + " must be a 42-character 0x-prefixed address"
	case "ip_asset_id":
		return e.Field() + " must be at least 20 characters"
	default:
		return e.Field() + " is invalid"
	}
}
