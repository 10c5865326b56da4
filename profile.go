package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to parse phone numbers given
// without a country prefix.
var DefaultPhoneRegion = "US"

// NormalizePhone parses a phone number and renders it in E.164 form so the
// same number always stores identically regardless of input formatting.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
