package http

// WebhookRequest is the provider notification body. Only routing fields are
// read; amounts and status always come from the provider API.
type WebhookRequest struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	UserID string `json:"user_id"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

type WebhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}
