package resource_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/andyle182810/ussdadmin/resource"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validCountry() *resource.Country {
	return &resource.Country{
		ID:        0,
		Name:      "Ghana",
		ISOCode:   "GH",
		DialCode:  "+233",
		Currency:  "GHS",
		IsActive:  true,
		CreatedAt: nil,
	}
}

func validConfiguration() *resource.NetworkConfiguration {
	return &resource.NetworkConfiguration{
		ID:             0,
		Network:        3,
		USSDCode:       "*170*1#",
		CallbackURL:    "https://hooks.example.com/ussd",
		TimeoutSeconds: 30,
		MinAmount:      decimal.NewFromInt(1),
		MaxAmount:      decimal.RequireFromString("5000.00"),
		IsActive:       true,
		UpdatedAt:      nil,
	}
}

func requireValidationErrors(t *testing.T, err error) resource.ValidationErrors {
	t.Helper()

	require.Error(t, err)

	var validationErrors resource.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	return validationErrors
}

func TestValidate_Success(t *testing.T) {
	t.Parallel()

	validatorInstance := resource.NewValidator()

	require.NoError(t, validatorInstance.Validate(validCountry()))
	require.NoError(t, validatorInstance.Validate(validConfiguration()))
}

func TestValidate_Country(t *testing.T) {
	t.Parallel()

	validatorInstance := resource.NewValidator()

	tests := []struct {
		name          string
		mutate        func(c *resource.Country)
		expectedField string
		expectedTag   string
		expectedMsg   string
	}{
		{
			name:          "missing name",
			mutate:        func(c *resource.Country) { c.Name = "" },
			expectedField: "name",
			expectedTag:   "required",
			expectedMsg:   "name is required",
		},
		{
			name:          "three letter iso code",
			mutate:        func(c *resource.Country) { c.ISOCode = "GHA" },
			expectedField: "iso_code",
			expectedTag:   "iso3166_1_alpha2",
			expectedMsg:   "iso_code must be an ISO 3166 alpha-2 country code",
		},
		{
			name:          "dial code without plus",
			mutate:        func(c *resource.Country) { c.DialCode = "233" },
			expectedField: "dial_code",
			expectedTag:   "dial_code",
			expectedMsg:   "dial_code must be a dial code such as +233",
		},
		{
			name:          "unknown currency",
			mutate:        func(c *resource.Country) { c.Currency = "XYZ" },
			expectedField: "currency",
			expectedTag:   "iso4217",
			expectedMsg:   "currency must be an ISO 4217 currency code",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			country := validCountry()
			testCase.mutate(country)

			validationErrors := requireValidationErrors(t, validatorInstance.Validate(country))

			require.Len(t, validationErrors, 1)
			require.Equal(t, testCase.expectedField, validationErrors[0].Field)
			require.Equal(t, testCase.expectedTag, validationErrors[0].Tag)
			require.Equal(t, testCase.expectedMsg, validationErrors[0].Message)
		})
	}
}

func TestValidate_NetworkConfiguration(t *testing.T) {
	t.Parallel()

	validatorInstance := resource.NewValidator()

	config := validConfiguration()
	config.USSDCode = "170"
	config.MinAmount = decimal.NewFromInt(-1)
	config.MaxAmount = decimal.Zero
	config.TimeoutSeconds = 600

	validationErrors := requireValidationErrors(t, validatorInstance.Validate(config))

	require.Equal(t, map[string][]string{
		"ussd_code":       {"ussd_code must be a USSD code such as *123#"},
		"timeout_seconds": {"timeout_seconds must be less than or equal to 180"},
		"min_amount":      {"min_amount must be greater than or equal to 0"},
		"max_amount":      {"max_amount must be greater than 0"},
	}, validationErrors.Fields())
}

func TestValidate_PhoneNumberAndUser(t *testing.T) {
	t.Parallel()

	validatorInstance := resource.NewValidator()

	phone := &resource.PhoneNumber{
		ID:        0,
		Number:    "0201234567",
		Network:   1,
		Label:     "",
		Balance:   decimal.RequireFromString("-0.01"),
		IsActive:  true,
		CreatedAt: nil,
	}

	validationErrors := requireValidationErrors(t, validatorInstance.Validate(phone))
	require.Equal(t, map[string][]string{
		"number":  {"number must be an E.164 phone number"},
		"balance": {"balance must be greater than or equal to 0"},
	}, validationErrors.Fields())

	user := &resource.User{
		ID:         0,
		Username:   "ops",
		Email:      "ops@example.com",
		FirstName:  "",
		LastName:   "",
		Password:   "short",
		IsActive:   true,
		IsStaff:    false,
		DateJoined: nil,
	}

	validationErrors = requireValidationErrors(t, validatorInstance.Validate(user))
	require.Len(t, validationErrors, 1)
	require.Equal(t, "password must be at least 8", validationErrors[0].Message)

	user.Password = ""
	require.NoError(t, validatorInstance.Validate(user))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	errs := resource.ValidationErrors{
		{Field: "name", Tag: "required", Value: "", Message: "name is required"},
		{Field: "iso_code", Tag: "required", Value: "", Message: "iso_code is required"},
	}

	require.Equal(t, "name is required; iso_code is required", errs.Error())
}

func TestFromAPIError(t *testing.T) {
	t.Parallel()

	apiErr := &apiclient.APIError{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"name":["Too long."],"iso_code":"Already taken.","detail":"ignored"}`),
		RequestID:  "req-1",
	}

	validationErrors := resource.FromAPIError(apiErr)

	require.Equal(t, resource.ValidationErrors{
		{Field: "iso_code", Tag: resource.TagServer, Value: "", Message: "Already taken."},
		{Field: "name", Tag: resource.TagServer, Value: "", Message: "Too long."},
	}, validationErrors)

	require.Nil(t, resource.FromAPIError(&apiclient.APIError{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"detail":"Bad request."}`),
		RequestID:  "",
	}))
}
