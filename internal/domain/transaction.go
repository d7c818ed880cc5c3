package domain

// TxKind is the kind of a ledger transaction.
type TxKind string

const (
	TxKindDeposit    TxKind = "deposit"
	TxKindWithdrawal TxKind = "withdrawal"
	TxKindDispute    TxKind = "dispute"
	TxKindResolve    TxKind = "resolve"
	TxKindChargeBack TxKind = "chargeback"
)

// HasAmount reports whether transactions of this kind carry an amount.
func (k TxKind) HasAmount() bool {
	return k == TxKindDeposit || k == TxKindWithdrawal
}

// TransactionType is the tagged payload of a transaction. Amount is only
// meaningful for deposits and withdrawals.
type TransactionType struct {
	Kind   TxKind
	Amount Money
}

// Transaction is a single ledger entry.
type Transaction struct {
	ID       TransactionID
	ClientID ClientID
	Type     TransactionType
	// Invalid marks an entry whose replay failed. Set by the ledger only.
	Invalid bool
}

// NewDeposit creates a deposit transaction.
func NewDeposit(id TransactionID, client ClientID, amount Money) Transaction {
	return Transaction{ID: id, ClientID: client, Type: TransactionType{Kind: TxKindDeposit, Amount: amount}}
}

// NewWithdrawal creates a withdrawal transaction.
func NewWithdrawal(id TransactionID, client ClientID, amount Money) Transaction {
	return Transaction{ID: id, ClientID: client, Type: TransactionType{Kind: TxKindWithdrawal, Amount: amount}}
}

// NewDispute creates a dispute referencing transaction id.
func NewDispute(id TransactionID, client ClientID) Transaction {
	return Transaction{ID: id, ClientID: client, Type: TransactionType{Kind: TxKindDispute}}
}

// NewResolve creates a resolve referencing transaction id.
func NewResolve(id TransactionID, client ClientID) Transaction {
	return Transaction{ID: id, ClientID: client, Type: TransactionType{Kind: TxKindResolve}}
}

// NewChargeBack creates a charge back referencing transaction id.
func NewChargeBack(id TransactionID, client ClientID) Transaction {
	return Transaction{ID: id, ClientID: client, Type: TransactionType{Kind: TxKindChargeBack}}
}

// Kind is shorthand for t.Type.Kind.
func (t Transaction) Kind() TxKind {
	return t.Type.Kind
}
