package daraja

import (
	"errors"
	"strconv"
	"time"
)

// STKPushRequest is the signed push request body. Field names follow the
// provider's wire format.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the provider's synchronous answer to a push request
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKQueryRequest is the signed status query body
type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQueryResponse is the provider's answer to a status query. ResultCode is
// present only once the push has reached a terminal state, and arrives as a
// string.
type STKQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// TerminalResultCode parses ResultCode. ok is false while the push is still in
// flight (no result code yet) or when the provider returns something
// unparsable.
func (r *STKQueryResponse) TerminalResultCode() (int, bool) {
	if r.ResultCode == "" {
		return 0, false
	}
	code, err := strconv.Atoi(r.ResultCode)
	if err != nil {
		return 0, false
	}
	return code, true
}

// STKCallbackEnvelope is the provider's webhook payload. The callback arrives
// wrapped in a Body.stkCallback envelope; metadata items are name-keyed and
// neither their order nor their completeness is guaranteed.
type STKCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackItem is a single name/value metadata entry. Values arrive as JSON
// strings or numbers depending on the field.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// CallbackResult is the parsed, flattened view of a webhook
type CallbackResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDescription string
	ReceiptNumber     string
	Amount            int64
	PhoneNumber       string
	TransactionDate   string
}

// Success reports whether the customer authorized the payment
func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

// ErrMalformedCallback indicates the webhook payload lacks the expected
// nested structure.
var ErrMalformedCallback = errors.New("daraja: malformed callback payload")

// ParseCallback flattens a webhook envelope. On success (result code 0) the
// metadata item list is scanned by name for the receipt, amount, phone number
// and transaction date; missing items leave zero values.
func ParseCallback(envelope *STKCallbackEnvelope) (*CallbackResult, error) {
	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, ErrMalformedCallback
	}

	result := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
	}

	if cb.ResultCode != 0 {
		return result, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				result.ReceiptNumber = v
			}
		case "Amount":
			result.Amount = numericValue(item.Value)
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case string:
				result.PhoneNumber = v
			case float64:
				result.PhoneNumber = strconv.FormatInt(int64(v), 10)
			}
		case "TransactionDate":
			switch v := item.Value.(type) {
			case string:
				result.TransactionDate = v
			case float64:
				result.TransactionDate = strconv.FormatInt(int64(v), 10)
			}
		}
	}

	return result, nil
}

// numericValue coerces a metadata amount that may arrive as number or string.
// Fractional provider amounts are rounded up, matching the initiation rule.
func numericValue(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return ceilToUnit(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return ceilToUnit(f)
	default:
		return 0
	}
}

func ceilToUnit(f float64) int64 {
	i := int64(f)
	if f > float64(i) {
		i++
	}
	return i
}

// token endpoint response; expires_in arrives as a string
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (t *tokenResponse) ttl() time.Duration {
	seconds, err := strconv.Atoi(t.ExpiresIn)
	if err != nil || seconds <= 0 {
		return time.Hour // Daraja tokens live 3599s; fall back to that order of magnitude
	}
	return time.Duration(seconds) * time.Second
}
