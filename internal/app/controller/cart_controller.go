package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
	UserID    *uint `json:"user_id"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity"`
}

// cartOwner resolves the user whose cart is addressed. Shoppers may only touch their own cart;
// employees may read any cart but never modify one.
func cartOwner(c *gin.Context, requested uint, write bool) (uint, bool) {
	identity, ok := requireIdentity(c)
	if !ok {
		return 0, false
	}

	if identity.IsEmployee() && !write {
		return requested, true
	}
	if identity.IsUser() && identity.ID == requested {
		return requested, true
	}

	middleware.GetLoggerFromContext(c).Warn("Cart access denied", map[string]interface{}{
		"principal_id": identity.ID,
		"kind":         identity.Kind,
		"cart_user_id": requested,
	})
	apperrors.Forbidden(c, "You can only access your own cart")
	return 0, false
}

// GetCart returns the cart with live prices, or null when the user has none
// GET /api/cart/getcart/:userId
func (ctrl *CartController) GetCart(c *gin.Context) {
	requested, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	userID, ok := cartOwner(c, requested, false)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "fetch cart", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": cart,
	})
}

// AddToCart adds a product or increments its line
// POST /api/cart/add
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "add to cart")
		return
	}

	requested := uint(0)
	if identity, ok := middleware.GetIdentity(c); ok {
		requested = identity.ID
	}
	if req.UserID != nil {
		requested = *req.UserID
	}
	userID, ok := cartOwner(c, requested, true)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err, "add to cart", map[string]interface{}{
			"user_id":    userID,
			"product_id": req.ProductID,
			"quantity":   req.Quantity,
		})
		return
	}

	log.Info("Item added to cart successfully", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product added to cart",
		"cart":    cart,
	})
}

// UpdateCartItem sets the quantity of a line
// PUT /api/cart/:userId/:productId
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	requested, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	userID, ok := cartOwner(c, requested, true)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "update cart item")
		return
	}

	cart, err := ctrl.cartService.UpdateQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondError(c, err, "update cart item", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   req.Quantity,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cart updated",
		"cart":    cart,
	})
}

// RemoveFromCart removes a line; the cart becomes null once empty
// DELETE /api/cart/:userId/:productId
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	requested, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	userID, ok := cartOwner(c, requested, true)
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err, "remove cart item", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product removed from cart",
		"cart":    cart,
	})
}
