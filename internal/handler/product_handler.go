package handler

import (
	"net/http"

	"github.com/Aik0o1/cashback-system/internal/middleware"
	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var blobStore *storage.BlobStore

// SetBlobStore wires the image store used by product creation and update
func SetBlobStore(bs *storage.BlobStore) {
	blobStore = bs
}

func storeImage(c echo.Context) (string, bool, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", false, nil
	}

	src, err := file.Open()
	if err != nil {
		return "", true, err
	}
	defer src.Close()

	url, err := blobStore.Store(file.Filename, src)
	if err != nil {
		return "", true, err
	}
	return url, true, nil
}

// CreateProduct registers a product for the authenticated merchant. The
// request is multipart form data and the image is mandatory.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	claims, ok := middleware.AccountFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
	}

	var merchant model.Merchant
	if err := database.GetDB().First(&merchant, claims.AccountID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	name := c.FormValue("name")
	description := c.FormValue("description")
	category := c.FormValue("category")
	priceStr := c.FormValue("price")
	if name == "" || description == "" || category == "" || priceStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, description, price and category are required"})
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil || !price.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive number"})
	}

	imageURL, provided, err := storeImage(c)
	if err != nil {
		log.Error("Failed to store product image", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store image"})
	}
	if !provided {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product image is required"})
	}

	product := model.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		ImageURL:    imageURL,
		MerchantID:  merchant.ID,
	}

	if err := database.GetDB().Create(&product).Error; err != nil {
		log.Error("Failed to create product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.Uint("merchant_id", merchant.ID),
		zap.String("name", product.Name))
	return c.JSON(http.StatusCreated, product)
}

// ListProducts returns the whole catalog, optionally filtered by category
func ListProducts(c echo.Context) error {
	query := database.GetDB()

	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.FromContext(c).Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product by ID
func GetProduct(c echo.Context) error {
	var product model.Product
	if err := database.GetDB().First(&product, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateProduct updates a product owned by the requesting merchant. Fields
// are merged and the stored image is kept when no new one is uploaded.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	db := database.GetDB()
	var product model.Product
	if err := db.First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	if !requesterIsMerchant(c, product.MerchantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "product belongs to another merchant"})
	}

	if name := c.FormValue("name"); name != "" {
		product.Name = name
	}
	if description := c.FormValue("description"); description != "" {
		product.Description = description
	}
	if category := c.FormValue("category"); category != "" {
		product.Category = category
	}
	if priceStr := c.FormValue("price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil || !price.IsPositive() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive number"})
		}
		product.Price = price
	}

	imageURL, provided, err := storeImage(c)
	if err != nil {
		log.Error("Failed to store product image", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store image"})
	}
	if provided {
		product.ImageURL = imageURL
	}

	if err := db.Save(&product).Error; err != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product owned by the requesting merchant. Deletion
// is refused while any transaction references the product.
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	db := database.GetDB()
	var product model.Product
	if err := db.First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	if !requesterIsMerchant(c, product.MerchantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "product belongs to another merchant"})
	}

	var count int64
	db.Model(&model.Transaction{}).Where("product_id = ?", product.ID).Count(&count)
	if count > 0 {
		log.Warn("Product delete blocked by transactions",
			zap.Uint("product_id", product.ID),
			zap.Int64("transactions", count))
		return c.JSON(http.StatusConflict, echo.Map{"error": "product has transactions and cannot be deleted"})
	}

	if err := db.Delete(&product).Error; err != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete product"})
	}

	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
