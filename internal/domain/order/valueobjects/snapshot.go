package valueobjects

// SnapshotVersion identifies the checkout snapshot schema. Bump when the
// shape changes so old rows stay readable.
const SnapshotVersion = 1

// CheckoutSnapshot captures line items and the shipping destination at
// checkout time. Immutable once set on an order.
type CheckoutSnapshot struct {
	Version  int                 `json:"version"`
	Items    []LineItem          `json:"items"`
	Shipping ShippingDestination `json:"shipping"`
}

type LineItem struct {
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type ShippingDestination struct {
	RecipientName string `json:"recipient_name"`
	Street        string `json:"street"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Phone         string `json:"phone,omitempty"`
}

// IsZero reports whether the snapshot has been populated.
func (s CheckoutSnapshot) IsZero() bool {
	return s.Version == 0 && len(s.Items) == 0
}

// TotalCents sums the line items.
func (s CheckoutSnapshot) TotalCents() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}
