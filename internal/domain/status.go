package domain

// RecordKind identifies the two financial record families the engine
// reconciles.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
)

// Expense workflow labels. The set is closed per deployment, not a compiled
// enum: extra paid-equivalent labels can be added through configuration.
const (
	ExpenseStatusSubmitted = "submitted"
	ExpenseStatusApproved  = "approved"
	ExpenseStatusPaid      = "paid"
	ExpenseStatusRejected  = "rejected"
)

// Income workflow labels.
const (
	IncomeStatusPending  = "pending"
	IncomeStatusInvoiced = "invoiced"
	IncomeStatusReceived = "received"
)

// Vocabulary is the closed status set for one record kind, with the subset
// of labels whose records are reflected in account balances.
type Vocabulary struct {
	kind      RecordKind
	initial   string
	known     map[string]struct{}
	affecting map[string]struct{}
}

func NewVocabulary(kind RecordKind, initial string, known, affecting []string) *Vocabulary {
	v := &Vocabulary{
		kind:      kind,
		initial:   initial,
		known:     make(map[string]struct{}, len(known)),
		affecting: make(map[string]struct{}, len(affecting)),
	}
	for _, s := range known {
		v.known[s] = struct{}{}
	}
	for _, s := range affecting {
		v.known[s] = struct{}{}
		v.affecting[s] = struct{}{}
	}
	return v
}

func (v *Vocabulary) Kind() RecordKind { return v.kind }

// Initial is the status a freshly created record gets when the caller does
// not supply one. Always non-affecting.
func (v *Vocabulary) Initial() string { return v.initial }

// Knows reports whether status belongs to the closed vocabulary.
func (v *Vocabulary) Knows(status string) bool {
	_, ok := v.known[status]
	return ok
}

// IsAffecting reports whether a record in this status has its amount
// reflected in the linked account's balance.
func (v *Vocabulary) IsAffecting(status string) bool {
	_, ok := v.affecting[status]
	return ok
}

// AffectingLabels returns the balance-affecting subset, for SQL filters.
func (v *Vocabulary) AffectingLabels() []string {
	labels := make([]string, 0, len(v.affecting))
	for s := range v.affecting {
		labels = append(labels, s)
	}
	return labels
}

// DefaultExpenseVocabulary builds the expense workflow. extraPaid lists
// deploy-time paid-equivalent labels that also count as balance-affecting.
func DefaultExpenseVocabulary(extraPaid ...string) *Vocabulary {
	known := []string{ExpenseStatusSubmitted, ExpenseStatusApproved, ExpenseStatusPaid, ExpenseStatusRejected}
	affecting := append([]string{ExpenseStatusPaid}, extraPaid...)
	return NewVocabulary(KindExpense, ExpenseStatusSubmitted, known, affecting)
}

func DefaultIncomeVocabulary() *Vocabulary {
	known := []string{IncomeStatusPending, IncomeStatusInvoiced, IncomeStatusReceived}
	return NewVocabulary(KindIncome, IncomeStatusPending, known, []string{IncomeStatusReceived})
}
