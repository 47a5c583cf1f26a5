package errx

// Type categorizes an error
type Type string

const (
	// TypeInternal represents internal server errors
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents validation errors (malformed or unknown input)
	TypeValidation Type = "VALIDATION"

	// TypeAuthorization represents authentication errors (no or bad credentials)
	TypeAuthorization Type = "AUTHORIZATION"

	// TypePermission represents permission errors (authenticated but not allowed)
	TypePermission Type = "PERMISSION"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents resource conflict errors
	TypeConflict Type = "CONFLICT"

	// TypeExternal represents errors from external services
	TypeExternal Type = "EXTERNAL"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}
