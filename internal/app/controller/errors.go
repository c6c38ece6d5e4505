package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

func rule(target error, status int, code, message string) apperrors.Rule {
	return apperrors.Rule{
		Target:    target,
		ErrorInfo: apperrors.ErrorInfo{Status: status, Code: code, Message: message},
	}
}

// serviceErrorRules translates service sentinels into responses. Message text is part of the API.
var serviceErrorRules = []apperrors.Rule{
	// auth
	rule(service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists, "User with this email already exists"),
	rule(service.ErrEmployeeAlreadyExists, http.StatusBadRequest, apperrors.AuthEmailAlreadyExists, "Employee with this email already exists"),
	rule(service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password"),
	rule(service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound, "User not found"),

	// products
	rule(service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound, "Product not found"),
	rule(service.ErrInvalidProductStatus, http.StatusBadRequest, apperrors.ProductInvalidStatus, "Status must be active or inactive"),
	rule(service.ErrInvalidProduct, http.StatusBadRequest, apperrors.ValidationInvalidInput, "Name is required and price and quantity must not be negative"),

	// cart
	rule(service.ErrCartNotFound, http.StatusNotFound, apperrors.CartNotFound, "Cart not found"),
	rule(service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound, "Item not found in cart"),
	rule(service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.CartInvalidQuantity, "Quantity must be between 1 and 10"),
	rule(service.ErrQuantityLimit, http.StatusBadRequest, apperrors.CartInvalidQuantity, "Cannot add more than 10 of a product to the cart"),
	rule(service.ErrProductUnavailable, http.StatusBadRequest, apperrors.ProductUnavailable, "Product is not available"),

	// checkout
	rule(service.ErrCheckoutNotFound, http.StatusNotFound, apperrors.CheckoutNotFound, "Checkout not found"),
	rule(service.ErrInvalidStatus, http.StatusBadRequest, apperrors.CheckoutInvalidStatus, "Invalid status"),
	rule(service.ErrIllegalTransition, http.StatusConflict, apperrors.CheckoutIllegalTransition, "Status transition not allowed"),
	rule(service.ErrInvalidReceipt, http.StatusBadRequest, apperrors.UploadInvalidFileType, "Receipt must be an image or PDF of at most 5MB"),
	rule(service.ErrInvalidCheckout, http.StatusBadRequest, apperrors.ValidationRequired, "Address, phone number, email, items and total price are required"),

	// feedback
	rule(service.ErrFeedbackTextRequired, http.StatusBadRequest, apperrors.ValidationRequired, "Feedback and userId are required"),
	rule(service.ErrFeedbackFieldsRequired, http.StatusBadRequest, apperrors.ValidationRequired, "Feedback and rating are required"),
	rule(service.ErrCommentRequired, http.StatusBadRequest, apperrors.ValidationRequired, "Rating and comment are required"),
	rule(service.ErrInvalidRating, http.StatusBadRequest, apperrors.FeedbackInvalidRating, "Rating must be between 1 and 5"),
	rule(service.ErrOrderNotFound, http.StatusNotFound, apperrors.CheckoutNotFound, "Order not found"),
	rule(service.ErrOrderNotDelivered, http.StatusBadRequest, apperrors.FeedbackNotDelivered, "Feedback can only be submitted for delivered orders"),
	rule(service.ErrFeedbackExists, http.StatusConflict, apperrors.FeedbackAlreadyExists, "Feedback already exists for this order"),
	rule(service.ErrOrderFeedbackNotFound, http.StatusNotFound, apperrors.FeedbackNotFound, "Feedback not found for this order"),
	rule(service.ErrUserFeedbackNotFound, http.StatusNotFound, apperrors.FeedbackNotFound, "No feedback found for this user"),
	rule(service.ErrProductOrdersNotFound, http.StatusNotFound, apperrors.CheckoutNotFound, "No orders found for this product"),
	rule(service.ErrFeedbackNotFound, http.StatusNotFound, apperrors.FeedbackNotFound, "Feedback not found"),
	rule(service.ErrFeedbackEditForbidden, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only edit your own feedback"),
	rule(service.ErrFeedbackDeleteForbidden, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only delete your own feedback"),
	rule(service.ErrFeedbackAdminRequired, http.StatusForbidden, apperrors.AuthzEmployeeOnly, "Only employees can moderate feedback"),
	rule(service.ErrFeedbackUserRequired, http.StatusForbidden, apperrors.AuthzForbidden, "Only customers can leave feedback"),
}

// respondError answers with the mapped sentinel, or logs err and falls back to the
// persistence error parser. context names the operation, e.g. "create checkout".
func respondError(c *gin.Context, err error, context string, fields map[string]interface{}) {
	log := middleware.GetLoggerFromContext(c)

	if info, ok := apperrors.Match(err, serviceErrorRules); ok {
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["error"] = err.Error()
		log.Warn("Request rejected: "+context, fields)
		apperrors.Respond(c, info)
		return
	}

	log.Error("Failed to "+context, err, fields)
	apperrors.ParseAndRespond(c, err, context)
}

// parseIDParam reads a positive numeric path parameter, answering 400 when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireIdentity reads the session identity set by the auth middleware.
func requireIdentity(c *gin.Context) (service.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Identity{}, false
	}
	return identity, true
}

func bindingFailed(c *gin.Context, err error, context string) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request body: "+context, map[string]interface{}{
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
}
