package controller

const (
	apiKeyHeader = "X-API-Key"
	maxBodyBytes = 1 << 20

	msgInvalidBody  = "invalid request body"
	msgBodyTooLarge = "request body too large"
	msgUnauthorized = "unauthorized"
	msgInternal     = "internal server error"
)
