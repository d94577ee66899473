package response

// Response is the standard API envelope: {"success": true, "data": ...} on
// success, {"success": false, "message": ..., "errors": {...}} on failure.
type Response struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Success wraps data in the standard success envelope
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// Error wraps an error message in the standard error envelope
func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// ValidationError wraps a message plus field-level errors (422 responses)
func ValidationError(message string, fields map[string]string) Response {
	return Response{
		Success: false,
		Message: message,
		Errors:  fields,
	}
}
