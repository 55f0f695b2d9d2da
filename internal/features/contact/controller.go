package contact

import (
	"bytes"

	"contacts-sync/internal/common/api"
	"contacts-sync/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ContactController struct {
	Service ContactService
	Log     *zap.Logger
}

func NewContactController(service ContactService, log *zap.Logger) *ContactController {
	return &ContactController{
		Service: service,
		Log:     log,
	}
}

// ListContacts godoc
// @Summary      List contacts
// @Description  Contacts of the calling customer, newest first
// @Tags         contacts
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/contacts [get]
func (ctrl *ContactController) ListContacts(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	contacts, err := ctrl.Service.ListContacts(c.UserContext(), customerID)
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"contacts": contacts,
	})
}

// CreateContact godoc
// @Summary      Create contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        contact  body      ContactInput  true  "Contact"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/contacts [post]
func (ctrl *ContactController) CreateContact(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	var input ContactInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	contact, err := ctrl.Service.CreateContact(c.UserContext(), customerID, input)
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"contact": contact,
	})
}

// UpdateContact godoc
// @Summary      Update contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        contact  body      UpdateContactRequest  true  "Contact"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/contacts [put]
func (ctrl *ContactController) UpdateContact(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	var req UpdateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	contact, err := ctrl.Service.UpdateContact(c.UserContext(), customerID, req.ID, req.ContactInput)
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"contact": contact,
	})
}

// DeleteContact godoc
// @Summary      Delete contact
// @Tags         contacts
// @Produce      json
// @Param        id  query  string  true  "Contact ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/contacts [delete]
func (ctrl *ContactController) DeleteContact(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	if err := ctrl.Service.DeleteContact(c.UserContext(), customerID, c.Query("id")); err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// ExportContacts godoc
// @Summary      Export contacts as xlsx
// @Tags         contacts
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file
// @Router       /api/contacts/export [get]
func (ctrl *ContactController) ExportContacts(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	var buf bytes.Buffer
	if err := ctrl.Service.ExportContacts(c.UserContext(), customerID, &buf); err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment("contacts.xlsx")
	return c.Send(buf.Bytes())
}

// ImportContacts godoc
// @Summary      Import contacts from xlsx
// @Tags         contacts
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Spreadsheet"
// @Success      200  {object}  ImportResult
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/contacts/import [post]
func (ctrl *ContactController) ImportContacts(c *fiber.Ctx) error {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	result, err := ctrl.Service.ImportContacts(c.UserContext(), customerID, file)
	if err != nil {
		return api.WriteError(c, ctrl.Log, err)
	}

	return c.JSON(result)
}
