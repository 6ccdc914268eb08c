package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service     *services.ProductService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, authService *services.AuthService) *ProductHandler {
	return &ProductHandler{
		service:     service,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the product routes. Reads are public; writes are
// admin only.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)

	admin := productRoutes.Group("", middleware.AuthRequired(h.authService), middleware.AdminRequired())
	admin.Post("/", h.HandleCreateProduct)
	admin.Put("/:id", h.HandleUpdateProduct)
	admin.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts returns one page of the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	result, err := h.service.GetAllProducts(c.Context(), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleGetProductByID returns a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	product, err := h.service.GetProductByID(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a catalog entry.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(product); err != nil {
		return respondError(c, validationError(err))
	}

	if err := h.service.CreateProduct(c.Context(), &product); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct modifies a catalog entry.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return respondError(c, validationError(err))
	}
	product.ID = id
	if err := h.validate.Struct(product); err != nil {
		return respondError(c, validationError(err))
	}

	if err := h.service.UpdateProduct(c.Context(), &product); err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a catalog entry.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	if err := h.service.DeleteProduct(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
