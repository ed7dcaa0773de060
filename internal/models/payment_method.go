package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PaymentMethodType is the closed set of payout/payin rails.
type PaymentMethodType string

const (
	PaymentCashApp PaymentMethodType = "cashapp"
	PaymentVenmo   PaymentMethodType = "venmo"
	PaymentChime   PaymentMethodType = "chime"
	PaymentPayPal  PaymentMethodType = "paypal"
	PaymentCrypto  PaymentMethodType = "crypto"
)

var paymentTagPatterns = map[PaymentMethodType]*regexp.Regexp{
	PaymentCashApp: regexp.MustCompile(`^\$[A-Za-z0-9_-]{1,20}$`),
	PaymentChime:   regexp.MustCompile(`^\$[A-Za-z0-9_-]{1,20}$`),
	PaymentVenmo:   regexp.MustCompile(`^@[A-Za-z0-9_-]{5,30}$`),
	PaymentPayPal:  regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`),
	PaymentCrypto:  regexp.MustCompile(`^[A-Za-z0-9]{26,64}$`),
}

// PaymentMethod is a tagged variant: the tag format depends on the type.
type PaymentMethod struct {
	Type PaymentMethodType `json:"type"`
	Tag  string            `json:"tag"`
}

// Validate checks the tag against its type's format.
func (p PaymentMethod) Validate() error {
	pattern, ok := paymentTagPatterns[p.Type]
	if !ok {
		return fmt.Errorf("unsupported payment method %q", p.Type)
	}
	if !pattern.MatchString(strings.TrimSpace(p.Tag)) {
		return fmt.Errorf("invalid %s tag %q", p.Type, p.Tag)
	}
	return nil
}

// Value implements driver.Valuer (JSONB column).
func (p PaymentMethod) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *PaymentMethod) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// PaymentMethods is stored as a JSONB array.
type PaymentMethods []PaymentMethod

// Value implements driver.Valuer.
func (p PaymentMethods) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]PaymentMethod(p))
}

// Scan implements sql.Scanner.
func (p *PaymentMethods) Scan(src interface{}) error {
	return scanJSON(src, p)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported json source %T", src)
	}
}
