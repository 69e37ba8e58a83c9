package order

// Status is the fulfilment status shown to customers and staff
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further status change is possible
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered || target == StatusCancelled
	case StatusDelivered, StatusCancelled:
		return false
	}
	return false
}

// PaymentMode is how the customer pays
type PaymentMode string

const (
	PaymentModeOnline PaymentMode = "online"
	PaymentModeCOD    PaymentMode = "cod"
)

// IsValid checks if the payment mode is recognised
func (m PaymentMode) IsValid() bool {
	return m == PaymentModeOnline || m == PaymentModeCOD
}

// PaymentProvider identifies the gateway that collects an online payment
type PaymentProvider string

const (
	ProviderNone     PaymentProvider = ""
	ProviderRazorpay PaymentProvider = "razorpay"
	ProviderPhonePe  PaymentProvider = "phonepe"
)

// IsValid checks if the provider is a known online gateway
func (p PaymentProvider) IsValid() bool {
	return p == ProviderRazorpay || p == ProviderPhonePe
}

// String returns the provider name
func (p PaymentProvider) String() string {
	if p == ProviderNone {
		return "none"
	}
	return string(p)
}

// PaymentStatus tracks money collection. It only ever leaves pending once
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// IsValid checks if the payment status is recognised
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// IsFinal reports whether the payment has settled either way
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}
