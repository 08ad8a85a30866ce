package entities

// LedgerEventType names the events the engine emits on deposit state
// changes. Delivery (email, webhook) is the host's responsibility.
type LedgerEventType string

const (
	EventDepositPending LedgerEventType = "deposit_pending"
	EventDepositDone    LedgerEventType = "deposit_done"
)

// LedgerEvent carries the affected transaction to event consumers.
type LedgerEvent struct {
	Type        LedgerEventType `json:"type"`
	Transaction *Transaction    `json:"transaction"`
}
