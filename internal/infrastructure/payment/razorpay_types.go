package payment

// Razorpay payment statuses
const (
	razorpayStatusCreated    = "created"
	razorpayStatusAuthorized = "authorized"
	razorpayStatusCaptured   = "captured"
	razorpayStatusRefunded   = "refunded"
	razorpayStatusFailed     = "failed"
)

// Razorpay webhook events the store reacts to
const (
	RazorpayEventPaymentCaptured = "payment.captured"
	RazorpayEventPaymentFailed   = "payment.failed"
	RazorpayEventOrderPaid       = "order.paid"
)

// razorpayWebhook is the webhook envelope
type razorpayWebhook struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	Payload   struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// razorpayPayment is the payment entity in webhooks
type razorpayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}
