package httpapi

const (
	ErrInvalidJSON      = "invalid json"
	ErrMissingFields    = "missing required fields"
	ErrMissingID        = "missing id"
	ErrUnknownChannel   = "unknown channel"
	ErrUnknownProvider  = "unknown provider"
	ErrUnknownTemplate  = "unknown template type"
	ErrDependency       = "dependency error"
	ErrNotFound         = "not found"
	ErrBadForm          = "bad form"
	ErrInvalidSignature = "invalid signature"
)
