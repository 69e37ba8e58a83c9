package shipping

import (
	"encoding/json"
	"strconv"
)

const (
	shiprocketLoginPath          = "/auth/login"
	shiprocketServiceabilityPath = "/courier/serviceability/"
	shiprocketCreateOrderPath    = "/orders/create/adhoc"
	shiprocketAssignAWBPath      = "/courier/assign/awb"
	shiprocketLabelPath          = "/courier/generate/label"
	shiprocketInvoicePath        = "/orders/print/invoice"
	shiprocketCancelPath         = "/orders/cancel"
)

type shiprocketLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type shiprocketLoginResponse struct {
	Token string `json:"token"`
}

type shiprocketOrderItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice string `json:"selling_price"`
}

type shiprocketCreateOrderRequest struct {
	OrderID             string                `json:"order_id"`
	OrderDate           string                `json:"order_date"`
	PickupLocation      string                `json:"pickup_location"`
	BillingCustomerName string                `json:"billing_customer_name"`
	BillingLastName     string                `json:"billing_last_name"`
	BillingAddress      string                `json:"billing_address"`
	BillingAddress2     string                `json:"billing_address_2,omitempty"`
	BillingCity         string                `json:"billing_city"`
	BillingPincode      string                `json:"billing_pincode"`
	BillingState        string                `json:"billing_state"`
	BillingCountry      string                `json:"billing_country"`
	BillingEmail        string                `json:"billing_email,omitempty"`
	BillingPhone        string                `json:"billing_phone"`
	ShippingIsBilling   bool                  `json:"shipping_is_billing"`
	OrderItems          []shiprocketOrderItem `json:"order_items"`
	PaymentMethod       string                `json:"payment_method"`
	ShippingCharges     string                `json:"shipping_charges"`
	TotalDiscount       string                `json:"total_discount"`
	SubTotal            string                `json:"sub_total"`
	Length              float64               `json:"length"`
	Breadth             float64               `json:"breadth"`
	Height              float64               `json:"height"`
	Weight              float64               `json:"weight"`
}

type shiprocketCreateOrderResponse struct {
	OrderID    flexString `json:"order_id"`
	ShipmentID flexString `json:"shipment_id"`
	Status     string     `json:"status"`
}

type shiprocketAssignAWBRequest struct {
	ShipmentID int64 `json:"shipment_id"`
	CourierID  int   `json:"courier_id,omitempty"`
}

type shiprocketAssignAWBResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode          string `json:"awb_code"`
			CourierCompanyID int    `json:"courier_company_id"`
			CourierName      string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

type shiprocketLabelResponse struct {
	LabelCreated int    `json:"label_created"`
	LabelURL     string `json:"label_url"`
	Response     string `json:"response"`
}

type shiprocketInvoiceResponse struct {
	IsInvoiceCreated bool   `json:"is_invoice_created"`
	InvoiceURL       string `json:"invoice_url"`
}

type shiprocketIDs struct {
	IDs []int64 `json:"ids"`
}

type shiprocketShipmentIDs struct {
	ShipmentID []int64 `json:"shipment_id"`
}

type shiprocketServiceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies []shiprocketCourier `json:"available_courier_companies"`
	} `json:"data"`
	Message string `json:"message"`
}

type shiprocketCourier struct {
	CourierCompanyID      int        `json:"courier_company_id"`
	CourierName           string     `json:"courier_name"`
	Rate                  float64    `json:"rate"`
	EstimatedDeliveryDays flexString `json:"estimated_delivery_days"`
	ETD                   string     `json:"etd"`
	Rating                float64    `json:"rating"`
	COD                   int        `json:"cod"`
}

type shiprocketError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// flexString accepts ids Shiprocket sends either as numbers or strings
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) Int() int {
	n, _ := strconv.Atoi(string(f))
	return n
}
