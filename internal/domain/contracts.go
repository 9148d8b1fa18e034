package domain

// SubscribeRequest is the body of POST /api/subscribe.
type SubscribeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubscribeResponse acknowledges a stored subscription.
type SubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FailureResponse carries a user-facing rejection (4xx).
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse carries an unexpected failure (5xx). Error is the raw
// error text.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SubscribeSuccessMessage is returned with every successful subscribe.
const SubscribeSuccessMessage = "User saved successfully!"
