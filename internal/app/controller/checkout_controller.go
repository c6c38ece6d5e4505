package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
	reportService   service.ReportService
	hub             *ws.Hub
	upgrader        websocket.Upgrader
}

// NewCheckoutController builds the checkout endpoints. Websocket upgrades are accepted from the
// same origins as CORS, and from clients that send no Origin header.
func NewCheckoutController(
	checkoutService service.CheckoutService,
	reportService service.ReportService,
	hub *ws.Hub,
	allowedOrigins []string,
) *CheckoutController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	return &CheckoutController{
		checkoutService: checkoutService,
		reportService:   reportService,
		hub:             hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// CheckoutRequest is the JSON form of a checkout; browsers usually send multipart instead.
type CheckoutRequest struct {
	Address     string                      `json:"address"`
	PhoneNumber string                      `json:"phone_number"`
	Email       string                      `json:"email"`
	Items       []service.CheckoutItemInput `json:"items"`
	TotalPrice  float64                     `json:"total_price"`
}

type UpdateCheckoutStatusRequest struct {
	Status model.CheckoutStatus `json:"status" binding:"required"`
}

var errMalformedCheckoutForm = errors.New("malformed checkout form")

// formValue returns the first non-empty field among the given names.
func formValue(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.PostForm(name)); v != "" {
			return v
		}
	}
	return ""
}

func readCheckoutForm(c *gin.Context) (service.CreateCheckoutInput, multipart.File, error) {
	input := service.CreateCheckoutInput{
		Address:     formValue(c, "address"),
		PhoneNumber: formValue(c, "phone_number", "phoneNumber"),
		Email:       formValue(c, "email"),
	}

	if raw := formValue(c, "items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Items); err != nil {
			return input, nil, fmt.Errorf("%w: items: %v", errMalformedCheckoutForm, err)
		}
	}
	if raw := formValue(c, "total_price", "totalPrice"); raw != "" {
		total, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return input, nil, fmt.Errorf("%w: total price: %v", errMalformedCheckoutForm, err)
		}
		input.TotalPrice = total
	}

	header, err := c.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil, nil
	}
	if err != nil {
		return input, nil, fmt.Errorf("%w: receipt: %v", errMalformedCheckoutForm, err)
	}
	file, err := header.Open()
	if err != nil {
		return input, nil, err
	}
	input.Receipt = &service.ReceiptUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return input, file, nil
}

// CreateCheckout places an order for the signed-in shopper
// POST /api/checkout
// POST /api/checkout/checkout
func (ctrl *CheckoutController) CreateCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var input service.CreateCheckoutInput
	if c.ContentType() == binding.MIMEJSON {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindingFailed(c, err, "create checkout")
			return
		}
		input = service.CreateCheckoutInput{
			Address:     req.Address,
			PhoneNumber: req.PhoneNumber,
			Email:       req.Email,
			Items:       req.Items,
			TotalPrice:  req.TotalPrice,
		}
	} else {
		form, file, err := readCheckoutForm(c)
		if err != nil {
			bindingFailed(c, err, "create checkout")
			return
		}
		if file != nil {
			defer file.Close()
		}
		input = form
	}

	checkout, err := ctrl.checkoutService.CreateCheckout(c.Request.Context(), identity.ID, input)
	if err != nil {
		respondError(c, err, "create checkout", map[string]interface{}{
			"user_id": identity.ID,
		})
		return
	}

	log.Info("Checkout created successfully", map[string]interface{}{
		"checkout_id": checkout.ID,
		"user_id":     identity.ID,
		"total_price": checkout.TotalPrice,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Checkout successful",
		"checkout": checkout,
	})
}

// GetAllCheckouts lists every checkout, newest first
// GET /api/checkout
func (ctrl *CheckoutController) GetAllCheckouts(c *gin.Context) {
	checkouts, err := ctrl.checkoutService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch checkouts", nil)
		return
	}

	c.JSON(http.StatusOK, checkouts)
}

// GetMyCheckouts lists the signed-in shopper's orders
// GET /api/checkout/mine
func (ctrl *CheckoutController) GetMyCheckouts(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	checkouts, err := ctrl.checkoutService.ListByUser(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, err, "fetch user checkouts", map[string]interface{}{
			"user_id": identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, checkouts)
}

// GetCheckoutByID returns one checkout to its owner or to an employee
// GET /api/checkout/:id
func (ctrl *CheckoutController) GetCheckoutByID(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	checkout, err := ctrl.checkoutService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch checkout", map[string]interface{}{
			"checkout_id": id,
		})
		return
	}

	capability := service.CapabilityFor(identity, checkout.UserID)
	if !capability.IsOwner && !capability.IsAdmin {
		apperrors.Forbidden(c, "You can only view your own orders")
		return
	}

	c.JSON(http.StatusOK, checkout)
}

// UpdateCheckoutStatus moves a checkout through its lifecycle
// PATCH /api/checkout/:id/status
func (ctrl *CheckoutController) UpdateCheckoutStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCheckoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "update checkout status")
		return
	}

	checkout, err := ctrl.checkoutService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "update checkout status", map[string]interface{}{
			"checkout_id": id,
			"status":      req.Status,
		})
		return
	}

	log.Info("Checkout status updated", map[string]interface{}{
		"checkout_id": id,
		"status":      checkout.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Status updated successfully",
		"checkout": checkout,
	})
}

// DeleteCheckout removes a checkout and its lines
// DELETE /api/checkout/:id
func (ctrl *CheckoutController) DeleteCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.checkoutService.DeleteCheckout(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete checkout", map[string]interface{}{
			"checkout_id": id,
		})
		return
	}

	log.Info("Checkout deleted", map[string]interface{}{
		"checkout_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Checkout deleted successfully",
	})
}

// GetCheckoutStats returns dashboard counters
// GET /api/checkout/stats
func (ctrl *CheckoutController) GetCheckoutStats(c *gin.Context) {
	stats, err := ctrl.checkoutService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch checkout stats", nil)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportCheckouts streams the checkout workbook
// GET /api/checkout/export
func (ctrl *CheckoutController) ExportCheckouts(c *gin.Context) {
	filename := fmt.Sprintf("checkouts-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", service.XLSXContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := ctrl.reportService.WriteCheckoutReport(c.Request.Context(), c.Writer); err != nil {
		// headers are only committed once the workbook starts streaming
		if !c.Writer.Written() {
			c.Header("Content-Type", "")
			c.Header("Content-Disposition", "")
			respondError(c, err, "export checkouts", nil)
			return
		}
		middleware.GetLoggerFromContext(c).Error("Checkout export interrupted", err, nil)
	}
}

// Events upgrades an employee session to a websocket that receives checkout events
// GET /api/checkout/events
func (ctrl *CheckoutController) Events(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, map[string]interface{}{
			"employee_id": identity.ID,
		})
		return
	}

	client := &ws.Client{
		Hub:        ctrl.hub,
		Conn:       &ws.Conn{Conn: conn},
		EmployeeID: identity.ID,
		Send:       make(chan []byte, ws.SendBufferSize),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Checkout event stream opened", map[string]interface{}{
		"employee_id": identity.ID,
	})
}
