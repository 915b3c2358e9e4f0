package payments

import "encoding/json"

type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// InitializeRequest is the payment-intent payload sent to the gateway.
type InitializeRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Customization Customization     `json:"customization"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// InitializeResponse is returned for every gateway answer below HTTP 500,
// including rejections, so callers can inspect the reason.
type InitializeResponse struct {
	HTTPStatus int             `json:"-"`
	Status     string          `json:"status"`
	Message    json.RawMessage `json:"message,omitempty"`
	Data       *struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data,omitempty"`
	Raw json.RawMessage `json:"-"`
}

func (r *InitializeResponse) OK() bool {
	return r != nil && r.Status == "success" && r.Data != nil && r.Data.CheckoutURL != ""
}

func (r *InitializeResponse) CheckoutURL() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.CheckoutURL
}

type VerifyData struct {
	Status    string          `json:"status"`
	TxRef     string          `json:"tx_ref"`
	Reference string          `json:"reference,omitempty"`
	Amount    json.RawMessage `json:"amount,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	Email     string          `json:"email,omitempty"`
	Method    string          `json:"method,omitempty"`
}

type VerifyResponse struct {
	HTTPStatus int             `json:"-"`
	Status     string          `json:"status"`
	Message    json.RawMessage `json:"message,omitempty"`
	Data       *VerifyData     `json:"data,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Succeeded requires both the outer call status and the inner payment
// status to be "success".
func (r *VerifyResponse) Succeeded() bool {
	return r != nil && r.Status == "success" && r.Data != nil && r.Data.Status == "success"
}
