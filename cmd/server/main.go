package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"stc_back_end/internal/auth"
	"stc_back_end/internal/cache"
	"stc_back_end/internal/config"
	"stc_back_end/internal/database"
	"stc_back_end/internal/handlers/admin"
	"stc_back_end/internal/handlers/invoice"
	"stc_back_end/internal/handlers/payement"
	"stc_back_end/internal/handlers/product"
	"stc_back_end/internal/handlers/user"
	"stc_back_end/internal/jobs"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/routes"
	"stc_back_end/internal/service"
	"stc_back_end/internal/services"
	"stc_back_end/internal/utils"
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET manquant dans .env")
	}
	if cfg.StripeSecretKey == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	gateway := services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	log.Println("✅ Stripe initialisé")

	conns, err := database.ConnectDatabases(cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer conns.Close()

	store := repository.NewMongoStore(conns.MongoDB)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := store.CreateIndexes(ctx); err != nil {
			log.Printf("⚠️ Création des index MongoDB: %v", err)
		}
		cancel()
	}

	sessionsCache := cache.New(conns.Redis)
	tokens := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret)
	audit := utils.NewAuditLogger(conns.Scylla)
	mailer := newMailer(cfg)

	var index service.ProductIndex
	if search := services.NewProductSearch(conns.Elastic); search.Enabled() {
		index = search
	}
	var images service.ImageStorage
	imageStore := services.NewImageStore(conns.MinIO, cfg.MinIOBucket, cfg.MinIOUseSSL)
	if imageStore.Enabled() {
		images = imageStore
	}

	feed := admin.NewOrderFeed(cfg.CORSOrigins)

	// --- Services ---
	cartSvc := service.NewCartService(store.Carts, store.Products, store.Categories)
	couponSvc := service.NewCouponService(store.Coupons, store.Users)
	orderSvc := service.NewOrderService(store, mailer, feed).WithProductCache(sessionsCache)

	userHandler := &user.Handler{
		Auth:          service.NewAuthService(store.Users, sessionsCache, tokens, mailer),
		Passwords:     service.NewPasswordService(store.Users, sessionsCache, mailer),
		Addresses:     service.NewAddressService(store.Addresses),
		Cart:          cartSvc,
		Wishlist:      service.NewWishlistService(store.Wishlists, store.Products),
		Orders:        orderSvc,
		Wallet:        service.NewWalletService(store.Wallets),
		Audit:         audit,
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.SecureCookies(),
	}
	if cfg.GoogleEnabled() {
		userHandler.Google = auth.NewGoogleProvider(config.GoogleOAuthConfig(cfg))
	}
	initOAuthProviders(cfg)

	deps := routes.Deps{
		User: userHandler,
		Product: &product.Handler{
			Catalog: service.NewCatalogService(store, sessionsCache, index),
			Admin:   service.NewAdminCatalogService(store, sessionsCache, index, images),
			Images:  imageStore,
			Audit:   audit,
		},
		Payment: &payement.Handler{
			CheckoutSvc: service.NewCheckoutService(store, cartSvc, couponSvc, gateway, feed).WithProductCache(sessionsCache),
			Payments:    service.NewPaymentService(store, gateway, feed),
			Coupons:     couponSvc,
			Orders:      orderSvc,
			Reports:     service.NewReportService(store),
			Webhooks:    gateway,
			Audit:       audit,
		},
		Admin: &admin.Handler{
			Customers: service.NewCustomerService(store.Users, sessionsCache),
			Audit:     audit,
			Feed:      feed,
		},
		Invoice: &invoice.Handler{
			Invoices: service.NewInvoiceService(store.Orders, cfg.InvoiceGSTIN, nil).WithMailer(mailer),
		},
		Tokens:      tokens,
		Sessions:    sessionsCache,
		Audit:       audit,
		CORSOrigins: cfg.CORSOrigins,
	}

	scheduler := jobs.NewScheduler(orderSvc)
	if err := scheduler.Start(cfg.CronPendingOrders); err != nil {
		log.Fatalf("❌ CRON_PENDING_ORDERS invalide: %v", err)
	}
	defer scheduler.Stop()

	r := gin.Default()
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("🚀 Serveur STC lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur arrêté: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé: %v", err)
	}
}

func newMailer(cfg config.Config) utils.Mailer {
	if cfg.SMTPHost == "" {
		log.Println("⚠️ SMTP_HOST absent, les e-mails sont seulement journalisés")
		return utils.LogMailer{}
	}
	return utils.NewSMTPMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})
}

func initOAuthProviders(cfg config.Config) {
	// ✅ Configuration du store
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(86400 * 30)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	if !cfg.GoogleEnabled() {
		log.Println("⚠️ Aucun provider OAuth configuré")
		return
	}
	goth.UseProviders(google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, config.GoogleCallbackURL(cfg), "email", "profile"))
	log.Println("✅ Google OAuth activé")
}
