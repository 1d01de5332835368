package payu

// state_pol codes reported by PayU confirmation webhooks.
const (
	StatePolApproved = "4"
	StatePolExpired  = "5"
	StatePolDeclined = "6"
	StatePolPending  = "7"
)

// TransactionState is the normalized outcome of a PayU transaction.
type TransactionState string

const (
	StateApproved TransactionState = "approved"
	StateExpired  TransactionState = "expired"
	StateDeclined TransactionState = "declined"
	StatePending  TransactionState = "pending"
	StateUnknown  TransactionState = "unknown"
)

// ParseStatePol maps a raw state_pol code to a normalized state.
func ParseStatePol(code string) TransactionState {
	switch code {
	case StatePolApproved:
		return StateApproved
	case StatePolExpired:
		return StateExpired
	case StatePolDeclined:
		return StateDeclined
	case StatePolPending:
		return StatePending
	default:
		return StateUnknown
	}
}

// Confirmation is the body of a PayU confirmation webhook. PayU posts it
// form-encoded; some integrations relay it as JSON, so both tags are set.
type Confirmation struct {
	ReferenceSale string `json:"reference_sale" form:"reference_sale"`
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	StatePol      string `json:"state_pol" form:"state_pol"`
	Value         string `json:"value" form:"value"`
	Currency      string `json:"currency" form:"currency"`
	Sign          string `json:"sign" form:"sign"`
}

// EventID is the dedup key for a confirmation. PayU sends a separate
// confirmation per state change under the same transaction id, so the state
// must be part of the key; keying on the transaction id alone would swallow
// the approved confirmation that follows a pending one.
func (c Confirmation) EventID() string {
	return c.TransactionID + ":" + c.StatePol
}
