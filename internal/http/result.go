package httpapi

// Result is the envelope of every JSON response.
// - code: ResultSuccess on success
// - type: 'success' | 'error'
// - message: "ok" or a message key the front end translates
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultUnauthorized goes with HTTP 401 when the gateway identity headers are missing.
	ResultUnauthorized = 40100
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
