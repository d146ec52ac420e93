package admin

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stc_back_end/internal/models"
)

const (
	feedBuffer   = 32
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

type feedClient struct {
	send chan models.OrderEvent
}

// OrderFeed diffuse les événements de commande aux admins connectés en websocket
type OrderFeed struct {
	mu       sync.RWMutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
}

// NewOrderFeed accepte les origines listées; une liste vide les accepte toutes
func NewOrderFeed(allowedOrigins []string) *OrderFeed {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &OrderFeed{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Publish ne bloque jamais : un client trop lent perd l'événement
func (f *OrderFeed) Publish(evt models.OrderEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for cl := range f.clients {
		select {
		case cl.send <- evt:
		default:
			log.Printf("⚠️ Flux commandes : client saturé, événement %s perdu", evt.OrderID)
		}
	}
}

// Clients retourne le nombre d'admins connectés
func (f *OrderFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *OrderFeed) register() *feedClient {
	cl := &feedClient{send: make(chan models.OrderEvent, feedBuffer)}
	f.mu.Lock()
	f.clients[cl] = struct{}{}
	f.mu.Unlock()
	return cl
}

func (f *OrderFeed) unregister(cl *feedClient) {
	f.mu.Lock()
	delete(f.clients, cl)
	f.mu.Unlock()
}

// Serve GET /api/admin/orders/feed
func (f *OrderFeed) Serve(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	cl := f.register()
	defer f.unregister(cl)
	log.Printf("🔌 Admin connecté au flux commandes (%d)", f.Clients())

	// la lecture détecte la fermeture côté navigateur
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.WriteJSON(gin.H{"type": "connected", "message": "Flux commandes activé"})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case evt := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
