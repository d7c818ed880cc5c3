package domain

// AccountReport is the final, read-only view of a client account. Money
// fields carry exactly four fractional digits.
type AccountReport struct {
	Client    ClientID
	Available string
	Held      string
	Total     string
	Locked    bool
}
