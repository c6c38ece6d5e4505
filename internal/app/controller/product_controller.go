package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Price       float64             `json:"price" binding:"gte=0"`
	Quantity    int                 `json:"quantity" binding:"gte=0"`
	Status      model.ProductStatus `json:"status"`
	Images      []string            `json:"images"`
}

func (r ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Status:      r.Status,
		Images:      r.Images,
	}
}

type ProductStatusRequest struct {
	Status model.ProductStatus `json:"status" binding:"required"`
}

// GetAllProducts returns every product, including inactive ones
// GET /api/product
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch products", nil)
		return
	}

	log.Info("Products fetched successfully", map[string]interface{}{
		"count": len(products),
	})

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetActiveProducts returns what shoppers can buy
// GET /api/product/active
func (ctrl *ProductController) GetActiveProducts(c *gin.Context) {
	products, err := ctrl.productService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch active products", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns a product by ID
// GET /api/product/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct adds a product to the catalog
// POST /api/product
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "create product")
		return
	}

	product, err := ctrl.productService.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, "create product", map[string]interface{}{
			"name": req.Name,
		})
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces the editable fields of a product
// PUT /api/product/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "update product")
		return
	}

	product, err := ctrl.productService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err, "update product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	log.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"product": product,
	})
}

// UpdateProductStatus activates or deactivates a product
// PATCH /api/product/status/:id
func (ctrl *ProductController) UpdateProductStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "update product status")
		return
	}

	if err := ctrl.productService.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err, "update product status", map[string]interface{}{
			"product_id": id,
			"status":     req.Status,
		})
		return
	}

	log.Info("Product status updated", map[string]interface{}{
		"product_id": id,
		"status":     req.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product status updated successfully",
		"status":  req.Status,
	})
}

// DeleteProduct soft-deletes a product; carts and orders still resolve it
// DELETE /api/product/delete/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete product", map[string]interface{}{
			"product_id": id,
		})
		return
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
	})
}
