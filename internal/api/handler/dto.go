package handler

// InitiateSTKPushRequest represents a request to trigger an STK push.
// PhoneNumber and AccountReference override the values on the customer
// record; when absent, the stored phone and account number are used.
type InitiateSTKPushRequest struct {
	CustomerID       string  `json:"customer_id" binding:"required,uuid"`
	PhoneNumber      string  `json:"phone_number,omitempty"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	AccountReference string  `json:"account_reference,omitempty"`
	Description      string  `json:"description,omitempty"`
}

// InitiateSTKPushResponse represents a successfully triggered STK push
type InitiateSTKPushResponse struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	Status            string `json:"status"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

// ProviderStatusResponse describes the provider configuration without
// exposing credentials
type ProviderStatusResponse struct {
	Configured     bool   `json:"configured"`
	Environment    string `json:"environment"`
	ShortCode      string `json:"short_code,omitempty"`
	HasCallbackURL bool   `json:"has_callback_url"`
}

// PaymentStatusResponse represents a payment transaction in API responses
type PaymentStatusResponse struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	Status            string `json:"status"`
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	Receipt           string `json:"receipt,omitempty"`
	ResultDescription string `json:"result_description,omitempty"`
	Message           string `json:"message,omitempty"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// BillingPaymentResponse represents the billing record created for a
// completed payment
type BillingPaymentResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Receipt     string `json:"receipt"`
	PhoneNumber string `json:"phone_number"`
	PaidAt      string `json:"paid_at"`
}

// CallbackRecordResponse represents one entry of the raw webhook audit trail
type CallbackRecordResponse struct {
	ResultCode        *int   `json:"result_code,omitempty"`
	ResultDescription string `json:"result_description,omitempty"`
	Outcome           string `json:"outcome"`
	Detail            string `json:"detail,omitempty"`
	ReceivedAt        string `json:"received_at"`
}

// PaymentTrailResponse is the operator reconciliation view of a single push
type PaymentTrailResponse struct {
	Transaction PaymentStatusResponse    `json:"transaction"`
	Billing     *BillingPaymentResponse  `json:"billing,omitempty"`
	Callbacks   []CallbackRecordResponse `json:"callbacks"`
}

// CallbackAck is the acknowledgment body the provider expects for every
// delivered callback
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
