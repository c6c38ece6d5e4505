package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type FeedbackController struct {
	feedbackService service.FeedbackService
}

func NewFeedbackController(feedbackService service.FeedbackService) *FeedbackController {
	return &FeedbackController{
		feedbackService: feedbackService,
	}
}

type OrderFeedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   *int   `json:"rating"`
	UserID   *uint  `json:"user_id"`
}

type GeneralFeedbackRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitOrderFeedback attaches feedback to a delivered order. A shopper session supplies the
// author; otherwise user_id from the body does.
// POST /api/feedback/add/:orderId
func (ctrl *FeedbackController) SubmitOrderFeedback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	var req OrderFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "submit feedback")
		return
	}

	var userID uint
	if identity, ok := middleware.GetIdentity(c); ok && identity.IsUser() {
		userID = identity.ID
	} else if req.UserID != nil {
		userID = *req.UserID
	}

	feedback, err := ctrl.feedbackService.SubmitForOrder(c.Request.Context(), orderID, userID, req.Feedback, req.Rating)
	if err != nil {
		respondError(c, err, "submit feedback", map[string]interface{}{
			"order_id": orderID,
			"user_id":  userID,
		})
		return
	}

	log.Info("Feedback submitted", map[string]interface{}{
		"feedback_id": feedback.ID,
		"order_id":    orderID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Feedback submitted successfully",
		"feedback": feedback,
	})
}

// GetOrderFeedback
// GET /api/feedback/order/:orderId
func (ctrl *FeedbackController) GetOrderFeedback(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	feedback, err := ctrl.feedbackService.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "fetch feedback", map[string]interface{}{
			"order_id": orderID,
		})
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// UpdateOrderFeedback rewrites the author's feedback on an order
// PATCH /api/feedback/update/:orderId
func (ctrl *FeedbackController) UpdateOrderFeedback(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	var req OrderFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "update feedback")
		return
	}

	feedback, err := ctrl.feedbackService.Update(c.Request.Context(), orderID, req.Feedback, req.Rating, identity)
	if err != nil {
		respondError(c, err, "update feedback", map[string]interface{}{
			"order_id": orderID,
			"user_id":  identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Feedback updated successfully",
		"feedback": feedback,
	})
}

// DeleteOrderFeedback
// DELETE /api/feedback/order/:orderId
func (ctrl *FeedbackController) DeleteOrderFeedback(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	if err := ctrl.feedbackService.DeleteByOrder(c.Request.Context(), orderID, identity); err != nil {
		respondError(c, err, "delete feedback", map[string]interface{}{
			"order_id": orderID,
			"user_id":  identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Feedback deleted successfully",
	})
}

// DeleteFeedback removes the author's own feedback
// DELETE /api/feedback/delete/:id
func (ctrl *FeedbackController) DeleteFeedback(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.feedbackService.Delete(c.Request.Context(), id, identity); err != nil {
		respondError(c, err, "delete feedback", map[string]interface{}{
			"feedback_id": id,
			"user_id":     identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Feedback deleted successfully",
	})
}

// GetAllFeedback is the moderation view with users and orders resolved
// GET /api/feedback
func (ctrl *FeedbackController) GetAllFeedback(c *gin.Context) {
	feedbacks, err := ctrl.feedbackService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch feedback", nil)
		return
	}

	c.JSON(http.StatusOK, feedbacks)
}

// ModerateFeedback lets an employee remove any feedback
// DELETE /api/feedback/:id
func (ctrl *FeedbackController) ModerateFeedback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	feedback, err := ctrl.feedbackService.DeleteAdmin(c.Request.Context(), id, identity)
	if err != nil {
		respondError(c, err, "delete feedback", map[string]interface{}{
			"feedback_id":  id,
			"principal_id": identity.ID,
		})
		return
	}

	log.Info("Feedback moderated", map[string]interface{}{
		"feedback_id": id,
		"employee_id": identity.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Feedback deleted successfully",
		"feedback": feedback,
	})
}

// GetProductFeedback returns feedback left on orders that contain the product
// GET /api/feedback/product/:productId
func (ctrl *FeedbackController) GetProductFeedback(c *gin.Context) {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	feedbacks, err := ctrl.feedbackService.GetByProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err, "fetch product feedback", map[string]interface{}{
			"product_id": productID,
		})
		return
	}

	c.JSON(http.StatusOK, feedbacks)
}

// GetUserFeedback
// GET /api/feedback/user/:userId
func (ctrl *FeedbackController) GetUserFeedback(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	feedbacks, err := ctrl.feedbackService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "fetch user feedback", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	c.JSON(http.StatusOK, feedbacks)
}

// AddFeedback records general feedback from the signed-in shopper
// POST /api/feedback/add
func (ctrl *FeedbackController) AddFeedback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req GeneralFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "add feedback")
		return
	}

	feedback, err := ctrl.feedbackService.AddGeneral(c.Request.Context(), identity, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err, "add feedback", map[string]interface{}{
			"user_id": identity.ID,
		})
		return
	}

	log.Info("Feedback added", map[string]interface{}{
		"feedback_id": feedback.ID,
		"user_id":     identity.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Feedback added successfully",
		"feedback": feedback,
	})
}

// ListFeedback returns every feedback, newest first
// GET /api/feedback/all
func (ctrl *FeedbackController) ListFeedback(c *gin.Context) {
	feedbacks, err := ctrl.feedbackService.ListAllSimple(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch feedback", nil)
		return
	}

	c.JSON(http.StatusOK, feedbacks)
}

// GetAverageRating
// GET /api/feedback/average
func (ctrl *FeedbackController) GetAverageRating(c *gin.Context) {
	summary, err := ctrl.feedbackService.AverageRating(c.Request.Context())
	if err != nil {
		respondError(c, err, "compute average rating", nil)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetFeedbackByID
// GET /api/feedback/:id
func (ctrl *FeedbackController) GetFeedbackByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	feedback, err := ctrl.feedbackService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch feedback", map[string]interface{}{
			"feedback_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// EditFeedback lets the author change rating and comment
// PUT /api/feedback/edit/:id
func (ctrl *FeedbackController) EditFeedback(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req GeneralFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "edit feedback")
		return
	}

	feedback, err := ctrl.feedbackService.Edit(c.Request.Context(), id, req.Rating, req.Comment, identity)
	if err != nil {
		respondError(c, err, "edit feedback", map[string]interface{}{
			"feedback_id": id,
			"user_id":     identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Feedback updated successfully",
		"feedback": feedback,
	})
}
