package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/handlers/admin"
	"stc_back_end/internal/handlers/invoice"
	"stc_back_end/internal/handlers/payement"
	"stc_back_end/internal/handlers/product"
	"stc_back_end/internal/handlers/user"
	"stc_back_end/internal/middleware"
	"stc_back_end/internal/utils"
)

// Deps regroupe les handlers et ce dont les middlewares ont besoin
type Deps struct {
	User    *user.Handler
	Product *product.Handler
	Payment *payement.Handler
	Admin   *admin.Handler
	Invoice *invoice.Handler

	Tokens      *utils.JWTManager
	Sessions    *cache.Store
	Audit       *utils.AuditLogger
	CORSOrigins []string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		if err := d.Sessions.Client().Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(d.Tokens, d.Sessions)
	api := r.Group("/api", middleware.APIRateLimit(d.Sessions))

	// Comptes
	u := api.Group("/user")
	{
		u.POST("/signup", middleware.RegisterRateLimit(d.Sessions), d.User.Signup)
		u.POST("/verify-otp", d.User.VerifyOTP)
		u.POST("/resend-otp", middleware.RegisterRateLimit(d.Sessions), d.User.ResendOTP)
		u.POST("/signin", middleware.LoginRateLimit(d.Sessions), d.User.SignIn)
		u.POST("/forgot-password", middleware.ForgotPasswordRateLimit(d.Sessions), d.User.ForgotPassword)
		u.POST("/forgot-password/verify", d.User.VerifyPasswordOTP)
		u.POST("/reset-password", d.User.ResetPassword)
		u.POST("/change-password", authRequired, d.User.ChangePassword)
		u.GET("/me", authRequired, d.User.Me)
		u.PUT("/me", authRequired, d.User.UpdateMe)
	}

	a := api.Group("/auth")
	{
		a.POST("/refresh-token", d.User.RefreshToken)
		a.DELETE("/refresh-token", authRequired, d.User.Logout)
		a.GET("/google/url", d.User.GoogleAuthURL)
		a.POST("/google", d.User.GoogleCode)
		a.GET("/google/login", d.User.BeginGoogleAuth)
		a.GET("/google/callback", d.User.GoogleCallback)
	}

	// Catalogue public
	api.GET("/categories", d.Product.Categories)
	p := api.Group("/products")
	{
		p.GET("", d.Product.ListProducts)
		p.GET("/filters", d.Product.FilterOptions)
		p.GET("/filter", d.Product.FilterProducts)
		p.GET("/search", middleware.SearchRateLimit(d.Sessions), middleware.OptionalAuth(d.Tokens, d.Sessions), d.Product.Search)
		p.GET("/category/:categoryId", d.Product.ByCategory)
		p.GET("/:id", d.Product.GetProduct)
		p.GET("/:id/quantity", d.Product.GetQuantity)
		p.GET("/:id/images/signed", d.Product.SignedImages)
	}

	// Webhook Stripe : pas d'auth, la signature fait foi
	api.POST("/payments/webhook", d.Payment.StripeWebhook)

	// Espace client connecté
	auth := api.Group("", authRequired)
	{
		auth.GET("/addresses", d.User.ListAddresses)
		auth.POST("/addresses", d.User.AddAddress)
		auth.GET("/addresses/:id", d.User.GetAddress)
		auth.PUT("/addresses/:id", d.User.UpdateAddress)
		auth.DELETE("/addresses/:id", d.User.DeleteAddress)
		auth.PATCH("/addresses/:id/default", d.User.SetDefaultAddress)

		auth.GET("/cart", d.User.GetCart)
		auth.POST("/cart/items", middleware.CartRateLimit(d.Sessions), d.User.AddToCart)
		auth.PUT("/cart/items/:productId", middleware.CartRateLimit(d.Sessions), d.User.UpdateCartItem)
		auth.DELETE("/cart/items/:productId", d.User.RemoveFromCart)
		auth.DELETE("/cart", d.User.ClearCart)

		auth.GET("/wishlist", d.User.GetWishlist)
		auth.POST("/wishlist", d.User.AddToWishlist)
		auth.GET("/wishlist/:productId", d.User.InWishlist)
		auth.DELETE("/wishlist/:productId", d.User.RemoveFromWishlist)

		auth.GET("/coupons/suitable", d.Payment.SuitableCoupons)
		auth.POST("/coupons/apply", d.Payment.ApplyCoupon)

		auth.POST("/checkout", d.Payment.Checkout)
		auth.POST("/payments/verify", d.Payment.VerifyPayment)
		auth.POST("/payments/retry", d.Payment.RetryPayment)

		auth.GET("/orders", d.User.ListOrders)
		auth.GET("/orders/:orderId", d.User.GetOrder)
		auth.POST("/orders/:orderId/cancel", d.User.CancelOrder)
		auth.POST("/orders/:orderId/items/:productId/cancel", d.User.CancelOrderItem)
		auth.POST("/orders/:orderId/items/:productId/return", d.User.ReturnOrderItem)
		auth.GET("/orders/:orderId/invoice", d.Invoice.Download)
		auth.POST("/orders/:orderId/invoice/send", d.Invoice.Send)

		auth.GET("/wallet", d.User.WalletHistory)
		auth.GET("/wallet/balance", d.User.WalletBalance)
		auth.POST("/wallet/credit", d.User.CreditWallet)
		auth.POST("/wallet/withdraw", d.User.WithdrawWallet)
	}

	// Back-office
	api.POST("/admin/signin", middleware.LoginRateLimit(d.Sessions), d.User.AdminSignIn)
	adm := api.Group("/admin", authRequired, middleware.RequireAdmin)
	{
		adm.GET("/customers", d.Admin.ListCustomers)
		adm.PATCH("/customers/:userId/block",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_USER_BAN, utils.RESOURCE_USER), d.Admin.BlockCustomer)
		adm.PATCH("/customers/:userId/unblock",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_USER_UNBAN, utils.RESOURCE_USER), d.Admin.UnblockCustomer)

		adm.GET("/categories", d.Product.ListCategories)
		adm.POST("/categories",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_CATEGORY_CREATE, utils.RESOURCE_CATEGORY), d.Product.AddCategory)
		adm.GET("/categories/:id", d.Product.GetCategory)
		adm.PUT("/categories/:id",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_CATEGORY_UPDATE, utils.RESOURCE_CATEGORY), d.Product.UpdateCategory)
		adm.PATCH("/categories/:id/block",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_CATEGORY_BLOCK, utils.RESOURCE_CATEGORY), d.Product.BlockCategory)
		adm.PATCH("/categories/:id/unblock",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_CATEGORY_BLOCK, utils.RESOURCE_CATEGORY), d.Product.UnblockCategory)
		adm.PATCH("/categories/:id/offer",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_CATEGORY_OFFER, utils.RESOURCE_CATEGORY), d.Product.SetCategoryOffer)

		adm.GET("/products", d.Product.AdminListProducts)
		adm.POST("/products",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_PRODUCT_CREATE, utils.RESOURCE_PRODUCT), d.Product.AddProduct)
		adm.GET("/products/:id", d.Product.AdminGetProduct)
		adm.PUT("/products/:id",
			middleware.AuditPriceChanges(d.Audit, utils.ACTION_PRODUCT_UPDATE), d.Product.UpdateProduct)
		adm.PATCH("/products/:id/block",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_PRODUCT_BLOCK, utils.RESOURCE_PRODUCT), d.Product.ToggleBlock)
		adm.PATCH("/products/:id/offer",
			middleware.AuditPriceChanges(d.Audit, utils.ACTION_PRODUCT_OFFER), d.Product.SetProductOffer)
		adm.POST("/products/:id/images",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_PRODUCT_IMAGE, utils.RESOURCE_PRODUCT), d.Product.UploadImage)
		adm.DELETE("/products/:id/images",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_PRODUCT_IMAGE, utils.RESOURCE_PRODUCT), d.Product.DeleteImage)

		adm.GET("/coupons", d.Payment.ListCoupons)
		adm.POST("/coupons", d.Payment.CreateCoupon)
		adm.PUT("/coupons/:couponId",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_COUPON_UPDATE, utils.RESOURCE_COUPON), d.Payment.UpdateCoupon)
		adm.DELETE("/coupons/:couponId",
			middleware.AuditCriticalActions(d.Audit, utils.ACTION_COUPON_DELETE, utils.RESOURCE_COUPON), d.Payment.DeleteCoupon)

		adm.GET("/orders", d.Payment.AdminListOrders)
		adm.GET("/orders/feed", d.Admin.Feed.Serve)
		adm.GET("/orders/:orderId", d.Payment.AdminGetOrder)
		adm.POST("/orders/:orderId/status", d.Payment.UpdateOrderStatus)
		adm.POST("/orders/:orderId/items/:productId/return", d.Payment.DecideReturn)

		adm.POST("/sales-report", d.Payment.SalesReport)
		adm.POST("/dashboard", d.Payment.Dashboard)

		adm.GET("/audit", d.Admin.GetAuditLogs)
	}
}
