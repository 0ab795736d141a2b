package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The front-end maps these codes to toast messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // login required
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // token expired
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // malformed or forged token

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // no access
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // no role in token
	AuthzRateLimited  = "AUTHZ_RATE_LIMITED"   // too many attempts

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound = "PRODUCT_NOT_FOUND"

	// ==================== Carts (CART_) ====================
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartRecipeNotFound  = "CART_RECIPE_NOT_FOUND"
	CartEmpty           = "CART_EMPTY"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderGuardViolation    = "ORDER_GUARD_VIOLATION"    // wrong state or wrong actor
	OrderInvalidAssignment = "ORDER_INVALID_ASSIGNMENT" // invalid code or order not found

	// ==================== Tracking (TRACKING_) ====================
	TrackingInvalidCoordinates = "TRACKING_INVALID_COORDINATES"

	// ==================== Favorites (FAVORITE_) ====================
	FavoriteInvalidType = "FAVORITE_INVALID_TYPE"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	StoreUnavailable      = "STORE_UNAVAILABLE" // transient backend failure, reads may be retried
)
