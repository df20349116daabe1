package models

// OperationEvent is the Kafka payload published for every committed
// financial operation and for degraded outcomes that need operator
// attention.
type OperationEvent struct {
	EventID       string `json:"event_id"`
	Timestamp     int64  `json:"timestamp"`
	Kind          string `json:"kind"`
	AccountNumber string `json:"account_number"`
	Counterparty  string `json:"counterparty,omitempty"`
	Amount        int64  `json:"amount"`
	Initiator     string `json:"initiator,omitempty"`
	Severity      string `json:"severity"`
	Detail        string `json:"detail,omitempty"`
}

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityDegraded = "degraded"
)
