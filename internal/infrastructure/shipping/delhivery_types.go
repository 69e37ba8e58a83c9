package shipping

const delhiveryCreatePath = "/api/cmu/create.json"

type delhiveryCreateRequest struct {
	Shipments      []delhiveryShipment `json:"shipments"`
	PickupLocation delhiveryPickup     `json:"pickup_location"`
}

type delhiveryPickup struct {
	Name string `json:"name"`
}

type delhiveryShipment struct {
	Name            string  `json:"name"`
	Address         string  `json:"add"`
	Pincode         string  `json:"pin"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Country         string  `json:"country"`
	Phone           string  `json:"phone"`
	Order           string  `json:"order"`
	PaymentMode     string  `json:"payment_mode"`
	CODAmount       string  `json:"cod_amount"`
	TotalAmount     string  `json:"total_amount"`
	ProductsDesc    string  `json:"products_desc"`
	Quantity        string  `json:"quantity"`
	OrderDate       string  `json:"order_date"`
	WeightGrams     float64 `json:"weight"`
	ShipmentLength  float64 `json:"shipment_length"`
	ShipmentWidth   float64 `json:"shipment_width"`
	ShipmentHeight  float64 `json:"shipment_height"`
	ShippingMode    string  `json:"shipping_mode"`
	SellerName      string  `json:"seller_name,omitempty"`
	ReturnPincode   string  `json:"return_pin,omitempty"`
	ClientReference string  `json:"client,omitempty"`
}

type delhiveryCreateResponse struct {
	Success  bool               `json:"success"`
	Packages []delhiveryPackage `json:"packages"`
	Remark   string             `json:"rmk"`
	Error    bool               `json:"error"`
}

type delhiveryPackage struct {
	Waybill string   `json:"waybill"`
	Status  string   `json:"status"`
	Refnum  string   `json:"refnum"`
	Remarks []string `json:"remarks"`
}
