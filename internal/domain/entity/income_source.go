package entity

// IncomeSource is one of the fixed income-source categories of the declaration.
// Ledger cells must carry the label verbatim, whatever the header language.
type IncomeSource string

const (
	BankTransaction IncomeSource = "Bank transaction"
	POSTerminal     IncomeSource = "POS terminal payment"
	Cash            IncomeSource = "Cash"
	PaymentSystem   IncomeSource = "Payment system: PayPal, Wise, Deel, etc."
)

// IncomeSources is the canonical category order used by every report
var IncomeSources = [categoryCount]IncomeSource{
	BankTransaction,
	POSTerminal,
	Cash,
	PaymentSystem,
}

const categoryCount = 4

// ParseIncomeSource matches label against the vocabulary byte for byte.
// No trimming or case folding is applied.
func ParseIncomeSource(label string) (IncomeSource, bool) {
	for _, s := range IncomeSources {
		if string(s) == label {
			return s, true
		}
	}
	return "", false
}

func (s IncomeSource) index() int {
	for i, c := range IncomeSources {
		if c == s {
			return i
		}
	}
	return -1
}
