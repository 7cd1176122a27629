package constants

// Error body keys. Every non-2xx response carries code and message; details
// is present only when there is something to add.
const (
	ResponseFieldCode    = "code"
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
)

func BuildCodedErrorResponse(code, message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldCode:    code,
		ResponseFieldMessage: message,
	}
	if details != nil {
		response[ResponseFieldDetails] = details
	}
	return response
}
