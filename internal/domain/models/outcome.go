package models

// Status classifies the outcome of processing one signal.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusQueued   Status = "queued"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Rejection reasons surfaced to the caller. These are outcomes, not errors:
// the signal was understood but refused, and the diagnostic fields tell the
// operator why.
const (
	ReasonDuplicate       = "Duplicate signal detected within window"
	ReasonInvalidTradeID  = "Invalid trade ID format"
	ReasonActiveTrade     = "Active trade already exists"
	ReasonInvalidPrices   = "Invalid position values"
	ReasonOutsideHours    = "Outside trading hours"
	ReasonNoActiveTrade   = "No active trade found with this ID"
	ReasonWrongDirection  = "Exit direction does not match active trade"
	ReasonInvalidExit     = "Invalid exit price"
	ReasonBiasAlreadySent = "Opening bias already sent today"
)

// Outcome is the structured result of processing a signal. Store failures
// travel separately as errors; everything else, including rejections and
// failed deliveries, is reported through this value.
type Outcome struct {
	Status       Status                 `json:"status"`
	Reason       string                 `json:"reason,omitempty"`
	Type         SignalType             `json:"type,omitempty"`
	TradeID      string                 `json:"tradeId,omitempty"`
	Message      string                 `json:"message,omitempty"`
	ActiveTrades int                    `json:"activeTradesCount"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Delivery     *DeliveryResult        `json:"delivery,omitempty"`
}

// Rejected builds a rejection outcome with diagnostic details.
func Rejected(reason string, details map[string]interface{}) *Outcome {
	return &Outcome{Status: StatusRejected, Reason: reason, Details: details}
}

// DeliveryMessage is one logical notification handed to the dispatcher.
// ImageURL is honored only by channels that support image-with-caption
// delivery and is set only for entry alerts.
type DeliveryMessage struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DeliveryResult reports the fate of one message on one channel.
type DeliveryResult struct {
	Channel  string `json:"channel"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}
