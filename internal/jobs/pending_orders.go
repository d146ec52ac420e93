package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StalePendingAge est l'âge à partir duquel une commande en ligne impayée est annulée
const StalePendingAge = 48 * time.Hour

const jobTimeout = 5 * time.Minute

// StaleOrderCanceller est implémenté par service.OrderService
type StaleOrderCanceller interface {
	CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler pilote les tâches planifiées du serveur
type Scheduler struct {
	cron   *cron.Cron
	orders StaleOrderCanceller
}

func NewScheduler(orders StaleOrderCanceller) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		orders: orders,
	}
}

// Start enregistre l'annulation des commandes impayées selon une expression cron à 5 champs
func (s *Scheduler) Start(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.CancelPendingOrders); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Annulation des commandes impayées planifiée (%s)", expr)
	return nil
}

// Stop attend la fin de la tâche en cours
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// CancelPendingOrders annule les paiements en ligne restés Pending plus de 48h
func (s *Scheduler) CancelPendingOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.orders.CancelStalePending(ctx, StalePendingAge)
	if err != nil {
		log.Printf("❌ Annulation des commandes impayées: %v", err)
		return
	}
	log.Printf("✅ %d commande(s) impayée(s) annulée(s)", n)
}
