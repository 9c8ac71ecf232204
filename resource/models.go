package resource

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PathCountries             = "/countries/"
	PathNetworks              = "/networks/"
	PathNetworkConfigurations = "/network-configurations/"
	PathPhoneNumbers          = "/phone-numbers/"
	PathUsers                 = "/users/"
)

// Read-only fields carry omitempty so writes leave them to the backend.

type Country struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"                 validate:"required,max=100"`
	ISOCode   string     `json:"iso_code"             validate:"required,iso3166_1_alpha2"`
	DialCode  string     `json:"dial_code"            validate:"required,dial_code"`
	Currency  string     `json:"currency"             validate:"required,iso4217"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type Network struct {
	ID             int64           `json:"id,omitempty"`
	Name           string          `json:"name"                 validate:"required,max=100"`
	Country        int64           `json:"country"              validate:"required,gt=0"`
	ShortCode      string          `json:"short_code"           validate:"required,alphanum,max=10"`
	TransactionFee decimal.Decimal `json:"transaction_fee"      validate:"gte=0"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
}

type NetworkConfiguration struct {
	ID             int64           `json:"id,omitempty"`
	Network        int64           `json:"network"              validate:"required,gt=0"`
	USSDCode       string          `json:"ussd_code"            validate:"required,ussd_code"`
	CallbackURL    string          `json:"callback_url"         validate:"required,http_url"`
	TimeoutSeconds int             `json:"timeout_seconds"      validate:"gte=5,lte=180"`
	MinAmount      decimal.Decimal `json:"min_amount"           validate:"gte=0"`
	MaxAmount      decimal.Decimal `json:"max_amount"           validate:"gt=0"`
	IsActive       bool            `json:"is_active"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

type PhoneNumber struct {
	ID        int64           `json:"id,omitempty"`
	Number    string          `json:"number"               validate:"required,e164"`
	Network   int64           `json:"network"              validate:"required,gt=0"`
	Label     string          `json:"label,omitempty"      validate:"max=50"`
	Balance   decimal.Decimal `json:"balance"              validate:"gte=0"`
	IsActive  bool            `json:"is_active"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

type User struct {
	ID         int64      `json:"id,omitempty"`
	Username   string     `json:"username"              validate:"required,alphanum,min=3,max=150"`
	Email      string     `json:"email"                 validate:"required,email"`
	FirstName  string     `json:"first_name,omitempty"  validate:"max=150"`
	LastName   string     `json:"last_name,omitempty"   validate:"max=150"`
	Password   string     `json:"password,omitempty"    validate:"omitempty,min=8"`
	IsActive   bool       `json:"is_active"`
	IsStaff    bool       `json:"is_staff"`
	DateJoined *time.Time `json:"date_joined,omitempty"`
}
