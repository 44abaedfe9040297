package handlers

import (
	"strings"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CustomerRequest is the body of customer create and update requests.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Company string `json:"company" validate:"omitempty,max=255"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (r CustomerRequest) toModel(id uint) *models.Customer {
	return &models.Customer{
		ID:      id,
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Company: r.Company,
		Address: r.Address,
		Notes:   r.Notes,
	}
}

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	service  *services.CustomerService
	validate *validator.Validate
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(service *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the customer routes on router, which is
// expected to be the /customers group.
func (h *CustomerHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleGetCustomers)
	router.Get("/:id", h.HandleGetCustomerByID)
	router.Post("/", h.HandleCreateCustomer)
	router.Put("/:id", h.HandleUpdateCustomer)
	router.Delete("/:id", h.HandleDeleteCustomer)
}

// HandleGetCustomers lists all customers, newest first.
func (h *CustomerHandler) HandleGetCustomers(c *fiber.Ctx) error {
	customers, err := h.service.GetAllCustomers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(customers)
}

// HandleGetCustomerByID retrieves a single customer.
func (h *CustomerHandler) HandleGetCustomerByID(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "customer")
	if err != nil {
		return respondError(c, err)
	}
	customer, err := h.service.GetCustomerByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(customer)
}

func (h *CustomerHandler) readRequest(c *fiber.Ctx) (*CustomerRequest, error) {
	var req CustomerRequest
	if err := bindBody(c, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, apperror.Validation("Name and email are required")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// HandleCreateCustomer creates a customer.
func (h *CustomerHandler) HandleCreateCustomer(c *fiber.Ctx) error {
	req, err := h.readRequest(c)
	if err != nil {
		return respondInvalid(c, err)
	}

	customer := req.toModel(0)
	if err := h.service.CreateCustomer(c.UserContext(), customer); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// HandleUpdateCustomer overwrites a customer.
func (h *CustomerHandler) HandleUpdateCustomer(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "customer")
	if err != nil {
		return respondError(c, err)
	}
	req, err := h.readRequest(c)
	if err != nil {
		return respondInvalid(c, err)
	}

	customer := req.toModel(id)
	if err := h.service.UpdateCustomer(c.UserContext(), customer); err != nil {
		return respondError(c, err)
	}
	updated, err := h.service.GetCustomerByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// HandleDeleteCustomer deletes a customer and its product links.
func (h *CustomerHandler) HandleDeleteCustomer(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "customer")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.DeleteCustomer(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
