package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
)

//
// --- HANDLERS ADRESSES ---
//

// ListAddresses GET /api/addresses
func (h *Handler) ListAddresses(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	addresses, err := h.Addresses.List(ctx, userID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// GetAddress GET /api/addresses/:id
func (h *Handler) GetAddress(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	a, err := h.Addresses.Get(ctx, userID, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// AddAddress POST /api/addresses
func (h *Handler) AddAddress(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input service.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Adresse invalide", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	a, err := h.Addresses.Add(ctx, userID, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAddress PUT /api/addresses/:id
func (h *Handler) UpdateAddress(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	var input service.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Adresse invalide", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	a, err := h.Addresses.Update(ctx, userID, id, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAddress DELETE /api/addresses/:id
func (h *Handler) DeleteAddress(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Addresses.Remove(ctx, userID, id); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Adresse supprimée"})
}

// SetDefaultAddress PATCH /api/addresses/:id/default
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Addresses.SetDefault(ctx, userID, id); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Adresse par défaut mise à jour"})
}
