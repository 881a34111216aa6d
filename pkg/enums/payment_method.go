package enums

import "fmt"

// PaymentMethod identifies the channel a payment is made through.
type PaymentMethod string

const (
	PaymentMethodPaystack     PaymentMethod = "paystack"
	PaymentMethodFlutterwave  PaymentMethod = "flutterwave"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodPaystack,
	PaymentMethodFlutterwave,
	PaymentMethodBankTransfer,
	PaymentMethodCash,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsManual reports whether the method settles outside any gateway (no
// automated verification path).
func (p PaymentMethod) IsManual() bool {
	return p == PaymentMethodBankTransfer || p == PaymentMethodCash
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
