package payment

const (
	phonePePayPath    = "/pg/v1/pay"
	phonePeStatusPath = "/pg/v1/status/%s/%s"
)

// PhonePe response codes
const (
	phonePeCodeSuccess   = "PAYMENT_SUCCESS"
	phonePeCodeError     = "PAYMENT_ERROR"
	phonePeCodeDeclined  = "PAYMENT_DECLINED"
	phonePeCodePending   = "PAYMENT_PENDING"
	phonePeCodeInitiated = "PAYMENT_INITIATED"
	phonePeStateDone     = "COMPLETED"
	phonePeStateFailed   = "FAILED"
)

// phonePePayRequest is base64-encoded into the request field of /pg/v1/pay
type phonePePayRequest struct {
	MerchantID            string               `json:"merchantId"`
	MerchantTransactionID string               `json:"merchantTransactionId"`
	MerchantUserID        string               `json:"merchantUserId"`
	Amount                int64                `json:"amount"`
	RedirectURL           string               `json:"redirectUrl"`
	RedirectMode          string               `json:"redirectMode"`
	CallbackURL           string               `json:"callbackUrl,omitempty"`
	MobileNumber          string               `json:"mobileNumber,omitempty"`
	PaymentInstrument     phonePePayInstrument `json:"paymentInstrument"`
}

type phonePePayInstrument struct {
	Type string `json:"type"`
}

// phonePeEnvelope is the common response shape
type phonePeEnvelope struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    phonePeData `json:"data"`
}

type phonePeData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
	InstrumentResponse    struct {
		Type         string `json:"type"`
		RedirectInfo struct {
			URL    string `json:"url"`
			Method string `json:"method"`
		} `json:"redirectInfo"`
	} `json:"instrumentResponse"`
}

// phonePeCallback is the server-to-server notification body
type phonePeCallback struct {
	Response string `json:"response"`
}
