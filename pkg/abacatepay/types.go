package abacatepay

// PaymentMethod is an accepted billing method.
type PaymentMethod string

const (
	MethodPIX  PaymentMethod = "PIX"
	MethodCard PaymentMethod = "CARD"
)

// FrequencyOneTime is the only billing frequency the checkout uses.
const FrequencyOneTime = "ONE_TIME"

// CustomerMetadata is the customer contact block sent with billings and PIX codes.
type CustomerMetadata struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
}

// Customer is a Provider-side customer record.
type Customer struct {
	ID       string           `json:"id"`
	Metadata CustomerMetadata `json:"metadata"`
}

// BillingProduct is one billed line. Price is in cents.
type BillingProduct struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// CreateBillingRequest is the POST /billing/create body.
type CreateBillingRequest struct {
	Frequency     string            `json:"frequency"`
	Methods       []PaymentMethod   `json:"methods"`
	Products      []BillingProduct  `json:"products"`
	ReturnURL     string            `json:"returnUrl"`
	CompletionURL string            `json:"completionUrl"`
	CustomerID    string            `json:"customerId,omitempty"`
	Customer      *CustomerMetadata `json:"customer,omitempty"`
}

// Billing is a Provider billing (hosted payment page).
type Billing struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Amount    int64            `json:"amount"`
	Status    string           `json:"status"`
	DevMode   bool             `json:"devMode"`
	Methods   []PaymentMethod  `json:"methods"`
	Products  []BillingProduct `json:"products"`
	Frequency string           `json:"frequency"`
	Customer  *Customer        `json:"customer,omitempty"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

// CreatePixQRCodeRequest is the POST /pixQrCode/create body. Amount is in cents.
type CreatePixQRCodeRequest struct {
	Amount      int64             `json:"amount"`
	ExpiresIn   int               `json:"expiresIn,omitempty"`
	Description string            `json:"description,omitempty"`
	Customer    *CustomerMetadata `json:"customer,omitempty"`
}

// PixQRCode is a PIX charge.
type PixQRCode struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	DevMode      bool   `json:"devMode"`
	BrCode       string `json:"brCode"`
	BrCodeBase64 string `json:"brCodeBase64"`
	PlatformFee  int64  `json:"platformFee"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	ExpiresAt    string `json:"expiresAt"`
}

// PixStatus is the GET /pixQrCode/check result.
type PixStatus struct {
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
}

// CreateCouponRequest is wrapped as {"data": ...} on the wire.
type CreateCouponRequest struct {
	Code         string `json:"code"`
	Notes        string `json:"notes,omitempty"`
	MaxRedeems   int    `json:"maxRedeems"`
	DiscountKind string `json:"discountKind"`
	Discount     int64  `json:"discount"`
}

// Coupon is a Provider discount coupon.
type Coupon struct {
	ID           string `json:"id"`
	Notes        string `json:"notes"`
	MaxRedeems   int    `json:"maxRedeems"`
	RedeemsCount int    `json:"redeemsCount"`
	DiscountKind string `json:"discountKind"`
	Discount     int64  `json:"discount"`
	DevMode      bool   `json:"devMode"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

// PixKey is the destination of a withdrawal.
type PixKey struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// CreateWithdrawalRequest is the POST /withdraw/create body.
type CreateWithdrawalRequest struct {
	ExternalID  string `json:"externalId"`
	Method      string `json:"method"`
	Amount      int64  `json:"amount"`
	Pix         PixKey `json:"pix"`
	Description string `json:"description,omitempty"`
}

// Withdrawal is a payout from the store balance.
type Withdrawal struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DevMode     bool   `json:"devMode"`
	ReceiptURL  string `json:"receiptUrl"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	PlatformFee int64  `json:"platformFee"`
	ExternalID  string `json:"externalId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// StoreBalance is in cents.
type StoreBalance struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Blocked   int64 `json:"blocked"`
}

// Store is the merchant account.
type Store struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Balance StoreBalance `json:"balance"`
}
