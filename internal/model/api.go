package model

// CreateShortURLRequest is the body of the create endpoint.
// Validity is in minutes; nil means the configured default.
type CreateShortURLRequest struct {
	URL       string  `json:"url" binding:"required"`
	Validity  *int    `json:"validity,omitempty"`
	Shortcode *string `json:"shortcode,omitempty"`
	QR        bool    `json:"qr,omitempty"`
}

// CreateShortURLResponse is returned after a successful allocation.
type CreateShortURLResponse struct {
	ShortCode string `json:"shortcode"`
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
	QRCode    string `json:"qrCode,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
