package enums

// PaymentMethod is the checkout payment option chosen by the customer.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

var paymentMethods = values[PaymentMethod]{PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodBankTransfer}

func (p PaymentMethod) String() string { return string(p) }

// Label returns the customer facing name.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentMethodCashOnDelivery:
		return "Cash on delivery"
	case PaymentMethodCard:
		return "Credit or debit card"
	case PaymentMethodBankTransfer:
		return "Bank transfer"
	}
	return string(p)
}

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

// RequiresOnlineCapture reports whether the order waits on a processor before it is paid.
func (p PaymentMethod) RequiresOnlineCapture() bool {
	return p == PaymentMethodCard
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value, "payment method")
}
