package user

import (
	"stc_back_end/internal/auth"
	"stc_back_end/internal/service"
	"stc_back_end/internal/utils"
)

// Handler regroupe les routes côté client
type Handler struct {
	Auth      *service.AuthService
	Passwords *service.PasswordService
	Addresses *service.AddressService
	Cart      *service.CartService
	Wishlist  *service.WishlistService
	Orders    *service.OrderService
	Wallet    *service.WalletService
	Audit     *utils.AuditLogger

	// Google est nil quand GOOGLE_CLIENT_ID n'est pas configuré
	Google        *auth.OAuthProvider
	FrontendURL   string
	SecureCookies bool
}
