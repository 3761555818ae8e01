package account

import (
	"fmt"
	"slices"
	"strings"
)

// MethodType is the family of a payment method.
type MethodType string

const (
	MethodBank   MethodType = "bank"
	MethodPaypal MethodType = "paypal"
	MethodCrypto MethodType = "crypto"
)

// CryptoSymbols lists the supported cryptocurrencies in menu order.
var CryptoSymbols = []string{"BTC", "ETH", "USDT"}

// MethodKind is Bank, Paypal or Crypto(symbol).
type MethodKind struct {
	Type   MethodType `json:"type"`
	Symbol string     `json:"symbol,omitempty"`
}

// Bank returns the bank transfer kind.
func Bank() MethodKind { return MethodKind{Type: MethodBank} }

// Paypal returns the PayPal kind.
func Paypal() MethodKind { return MethodKind{Type: MethodPaypal} }

// Crypto returns the crypto kind for a supported symbol.
func Crypto(symbol string) (MethodKind, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !slices.Contains(CryptoSymbols, symbol) {
		return MethodKind{}, fmt.Errorf("%w: %q", ErrUnsupportedCrypto, symbol)
	}
	return MethodKind{Type: MethodCrypto, Symbol: symbol}, nil
}

// String renders the user-facing label, e.g. "Bank" or "Crypto (BTC)".
func (k MethodKind) String() string {
	switch k.Type {
	case MethodBank:
		return "Bank"
	case MethodPaypal:
		return "Paypal"
	case MethodCrypto:
		return fmt.Sprintf("Crypto (%s)", k.Symbol)
	}
	return string(k.Type)
}

// PaymentMethod is immutable once created; Description is computed once and stored.
type PaymentMethod struct {
	Kind        MethodKind `json:"kind"`
	Detail      string     `json:"detail"`
	Description string     `json:"description"`
}

// NewPaymentMethod normalises the detail and freezes the description.
func NewPaymentMethod(kind MethodKind, detail string) (PaymentMethod, error) {
	detail = strings.ToLower(strings.TrimSpace(detail))
	if detail == "" {
		return PaymentMethod{}, ErrEmptyDetail
	}
	return PaymentMethod{
		Kind:        kind,
		Detail:      detail,
		Description: fmt.Sprintf("%s: %s", kind, detail),
	}, nil
}
