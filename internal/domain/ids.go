package domain

import "strconv"

// ClientID identifies a client account.
type ClientID uint16

func (id ClientID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// TransactionID identifies a transaction. Dispute, resolve and charge back
// events reuse the ID of the transaction they refer to.
type TransactionID uint32

func (id TransactionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
