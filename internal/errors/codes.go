package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. The frontend maps on the code; the message is shown as is.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzEmployeeOnly = "AUTHZ_EMPLOYEE_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Products (PRODUCT_) ====================
	ProductNotFound      = "PRODUCT_NOT_FOUND"
	ProductUnavailable   = "PRODUCT_UNAVAILABLE"
	ProductInvalidStatus = "PRODUCT_INVALID_STATUS"

	// ==================== Cart (CART_) ====================
	CartNotFound        = "CART_NOT_FOUND"
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"

	// ==================== Checkout (CHECKOUT_) ====================
	CheckoutNotFound          = "CHECKOUT_NOT_FOUND"
	CheckoutInvalidStatus     = "CHECKOUT_INVALID_STATUS"
	CheckoutIllegalTransition = "CHECKOUT_ILLEGAL_TRANSITION"

	// ==================== Feedback (FEEDBACK_) ====================
	FeedbackNotFound      = "FEEDBACK_NOT_FOUND"
	FeedbackInvalidRating = "FEEDBACK_INVALID_RATING"
	FeedbackAlreadyExists = "FEEDBACK_ALREADY_EXISTS"
	FeedbackNotDelivered  = "FEEDBACK_ORDER_NOT_DELIVERED"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
