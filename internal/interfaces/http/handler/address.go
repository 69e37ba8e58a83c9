package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wellnest/backend/internal/application/identity"
)

// AddressHandler serves the customer's address book. Every mutation returns
// the whole book so the storefront sees the default move.
type AddressHandler struct {
	BaseHandler
	addresses *identity.AddressService
}

func NewAddressHandler(addresses *identity.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// List godoc
// @ID           listAddresses
// @Summary      List saved addresses
// @Tags         account
// @Security     BearerAuth
// @Success      200 {object} APIResponse[[]identity.AddressResponse]
// @Router       /me/addresses [get]
func (h *AddressHandler) List(c *gin.Context) {
	if userID, ok := h.requireUserID(c); ok {
		book, err := h.addresses.List(requestContext(c), userID)
		h.respond(c, http.StatusOK, book, err)
	}
}

// Add godoc
// @ID           addAddress
// @Summary      Save an address
// @Description  The first address becomes the default
// @Tags         account
// @Security     BearerAuth
// @Param        request body identity.AddressInput true "Address"
// @Success      201 {object} APIResponse[[]identity.AddressResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /me/addresses [post]
func (h *AddressHandler) Add(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	var req identity.AddressInput
	if ok && h.bindJSON(c, &req) {
		book, err := h.addresses.Add(requestContext(c), userID, req)
		h.respond(c, http.StatusCreated, book, err)
	}
}

// Update godoc
// @ID           updateAddress
// @Summary      Edit a saved address
// @Tags         account
// @Security     BearerAuth
// @Param        id path string true "Address ID" format(uuid)
// @Param        request body identity.AddressInput true "Address"
// @Success      200 {object} APIResponse[[]identity.AddressResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /me/addresses/{id} [put]
func (h *AddressHandler) Update(c *gin.Context) {
	userID, addressID, ok := h.ownAddress(c)
	var req identity.AddressInput
	if ok && h.bindJSON(c, &req) {
		book, err := h.addresses.Update(requestContext(c), userID, addressID, req)
		h.respond(c, http.StatusOK, book, err)
	}
}

// Delete godoc
// @ID           deleteAddress
// @Summary      Remove a saved address
// @Description  Removing the default promotes the most recently added remaining address
// @Tags         account
// @Security     BearerAuth
// @Param        id path string true "Address ID" format(uuid)
// @Success      200 {object} APIResponse[[]identity.AddressResponse]
// @Router       /me/addresses/{id} [delete]
func (h *AddressHandler) Delete(c *gin.Context) {
	if userID, addressID, ok := h.ownAddress(c); ok {
		book, err := h.addresses.Remove(requestContext(c), userID, addressID)
		h.respond(c, http.StatusOK, book, err)
	}
}

// SetDefault godoc
// @ID           setDefaultAddress
// @Summary      Make an address the default
// @Tags         account
// @Security     BearerAuth
// @Param        id path string true "Address ID" format(uuid)
// @Success      200 {object} APIResponse[[]identity.AddressResponse]
// @Router       /me/addresses/{id}/default [put]
func (h *AddressHandler) SetDefault(c *gin.Context) {
	if userID, addressID, ok := h.ownAddress(c); ok {
		book, err := h.addresses.SetDefault(requestContext(c), userID, addressID)
		h.respond(c, http.StatusOK, book, err)
	}
}

func (h *AddressHandler) ownAddress(c *gin.Context) (userID, addressID uuid.UUID, ok bool) {
	if userID, ok = h.requireUserID(c); !ok {
		return
	}
	addressID, ok = h.pathUUID(c, "id")
	return
}
