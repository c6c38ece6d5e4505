package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/storage"
)

const productImageFolder = "products"

type UploadController struct {
	storage storage.Storage
}

func NewUploadController(storage storage.Storage) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

// UploadProductImage stores an image from the "image" form field and returns its URL,
// which can then be listed in a product's images.
// POST /api/product/images
func (ctrl *UploadController) UploadProductImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	file, err := c.FormFile("image")
	if err != nil {
		log.Warn("Missing image upload", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Image file is required")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if err := storage.ValidateContentType(contentType, storage.ImageContentTypes); err != nil {
		log.Warn("Invalid content type", map[string]interface{}{
			"content_type": contentType,
		})
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
		return
	}
	if err := storage.ValidateFileSize(file.Size, storage.MaxImageSize); err != nil {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Image must be 10MB or smaller")
		return
	}

	body, err := file.Open()
	if err != nil {
		log.Error("Failed to open uploaded image", err)
		apperrors.InternalError(c, "Failed to upload image")
		return
	}
	defer body.Close()

	key := storage.NewKey(productImageFolder, file.Filename)
	url, err := ctrl.storage.Put(c.Request.Context(), key, body, file.Size, contentType)
	if err != nil {
		log.Error("Failed to store product image", err, map[string]interface{}{
			"filename": file.Filename,
			"key":      key,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to upload image")
		return
	}

	log.Info("Product image uploaded", map[string]interface{}{
		"key":  key,
		"size": file.Size,
	})

	c.JSON(http.StatusCreated, gin.H{
		"url": url,
		"key": key,
	})
}
