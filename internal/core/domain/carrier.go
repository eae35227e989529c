package domain

// RawEvent is a carrier event exactly as reported, before normalization.
// Date uses the carrier's "DD-MM-YYYY HH:MM:SS" local format.
type RawEvent struct {
	Date        string `json:"date"`
	Status      string `json:"status"`
	StatusID    int    `json:"status_id"`
	Description string `json:"description"`
}

// DeliveryReceipt holds the proof-of-delivery block of a carrier response.
type DeliveryReceipt struct {
	Receiver         string `json:"receiver"`
	ReceiverDocument string `json:"receiver_document"`
	Relationship     string `json:"relationship"`
	ProtocolDate     string `json:"protocol_date"`
}

// CarrierResponse is a validated carrier tracking payload. It is transient:
// only its events are persisted, after normalization.
type CarrierResponse struct {
	ClientOrderID   string          `json:"client_order_id"`
	FreightValue    float64         `json:"freight_value"`
	PartnerItemID   int64           `json:"partner_item_id"`
	ClientName      string          `json:"client_name"`
	ExpectedDate    string          `json:"expected_date"`
	Addressee       string          `json:"addressee"`
	TrackingCode    string          `json:"tracking_code"`
	TrackingURL     string          `json:"tracking_url"`
	ProtocolURL     string          `json:"protocol_url"`
	DeliveryReceipt DeliveryReceipt `json:"delivery_receipt"`
	Events          []RawEvent      `json:"events"`
}
