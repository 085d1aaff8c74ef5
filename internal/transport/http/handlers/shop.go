package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/usecase"
)

// ShopHandler exposes seller storefront creation.
type ShopHandler struct {
	shops *usecase.ShopService
}

func NewShopHandler(shops *usecase.ShopService) *ShopHandler {
	return &ShopHandler{shops: shops}
}

func (h *ShopHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/create-shop", h.createShop)
}

// createShop godoc
// @Summary Create the shop of a newly registered seller
// @Tags Sellers
// @Accept json
// @Produce json
// @Param request body CreateShopRequest true "shop fields"
// @Success 201 {object} ShopResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/create-shop [post]
func (h *ShopHandler) createShop(c *gin.Context) {
	var req CreateShopRequest
	if !bind(c, &req) {
		return
	}

	shop, err := h.shops.CreateShop(c.Request.Context(), usecase.CreateShopInput{
		SellerID:     req.SellerID,
		Name:         req.Name,
		Bio:          req.Bio,
		Address:      req.Address,
		OpeningHours: req.OpeningHours,
		Website:      req.Website,
		Category:     req.Category,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ShopResponse{Success: true, Shop: newShopDetail(shop)})
}
