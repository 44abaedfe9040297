package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	msgProductIDsNotArray = "productIds must be an array of product IDs"
	maxProductID          = 1 << 53
)

var errProductIDsNotArray = errors.New(msgProductIDsNotArray)

// InvalidProductIDError reports the position of an element of productIds
// that is not a usable id.
type InvalidProductIDError struct {
	Index int
}

func (e *InvalidProductIDError) Error() string {
	return fmt.Sprintf("productIds[%d] is not a valid product id", e.Index)
}

// ProductIDList is a JSON array of product ids. Elements may be integers or
// strings holding a decimal integer; every id must be positive.
type ProductIDList []uint

// UnmarshalJSON implements json.Unmarshaler.
func (l *ProductIDList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errProductIDsNotArray
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errProductIDsNotArray
	}

	ids := make(ProductIDList, 0, len(raw))
	for i, elem := range raw {
		id, ok := parseProductID(elem)
		if !ok {
			return &InvalidProductIDError{Index: i}
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

func parseProductID(elem json.RawMessage) (uint, bool) {
	var s string
	if err := json.Unmarshal(elem, &s); err == nil {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil || id == 0 || id > maxProductID {
			return 0, false
		}
		return uint(id), true
	}

	var f float64
	if err := json.Unmarshal(elem, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f < 1 || f > maxProductID {
		return 0, false
	}
	return uint(f), true
}

// AssociationRequest is the body of the association mutations.
type AssociationRequest struct {
	ProductIDs *ProductIDList `json:"productIds" validate:"required"`
}

// AssociationHandler handles the customer/product association routes.
type AssociationHandler struct {
	service  *services.AssociationService
	validate *validator.Validate
}

// NewAssociationHandler creates a new AssociationHandler.
func NewAssociationHandler(service *services.AssociationService) *AssociationHandler {
	return &AssociationHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the association routes on router, which is
// expected to be the /customers group.
func (h *AssociationHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/:id/products", h.HandleList)
	router.Post("/:id/products", h.HandleAdd)
	router.Post("/:id/products/remove", h.HandleRemove)
	router.Post("/:id/products/update", h.HandleReplace)
}

// HandleList returns the products linked to the customer.
func (h *AssociationHandler) HandleList(c *fiber.Ctx) error {
	customerID, err := parseID(c, "id", "customer")
	if err != nil {
		return respondError(c, err)
	}
	products, err := h.service.List(c.UserContext(), customerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleAdd links products to the customer.
func (h *AssociationHandler) HandleAdd(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Add)
}

// HandleRemove unlinks products from the customer.
func (h *AssociationHandler) HandleRemove(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Remove)
}

// HandleReplace makes the listed products the customer's complete set.
func (h *AssociationHandler) HandleReplace(c *fiber.Ctx) error {
	return h.mutate(c, h.service.Replace)
}

func (h *AssociationHandler) readProductIDs(c *fiber.Ctx) ([]uint, error) {
	var req AssociationRequest
	if err := c.BodyParser(&req); err != nil {
		var invalid *InvalidProductIDError
		if errors.As(err, &invalid) {
			return nil, apperror.Validation(invalid.Error())
		}
		return nil, apperror.Validation(msgProductIDsNotArray)
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, apperror.Validation(msgProductIDsNotArray)
	}
	return []uint(*req.ProductIDs), nil
}

type associationMutation func(ctx context.Context, customerID uint, productIDs []uint) ([]models.Product, error)

func (h *AssociationHandler) mutate(c *fiber.Ctx, op associationMutation) error {
	customerID, err := parseID(c, "id", "customer")
	if err != nil {
		return respondError(c, err)
	}
	productIDs, err := h.readProductIDs(c)
	if err != nil {
		return respondError(c, err)
	}
	products, err := op(c.UserContext(), customerID, productIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}
