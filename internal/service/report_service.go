package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

const topProductsLimit = 10

// ReportQuery accepte soit une période nommée soit un intervalle explicite.
// SearchQuery, Page et Limit ne concernent que la liste des commandes du rapport.
type ReportQuery struct {
	Period      string    `json:"period"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	SearchQuery string    `json:"searchQuery"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
}

const (
	reportDefaultLimit = 10
	reportMaxLimit     = 100
)

func (q ReportQuery) pagination() (int, int) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = reportDefaultLimit
	}
	if limit > reportMaxLimit {
		limit = reportMaxLimit
	}
	return page, limit
}

type ReportService struct {
	reports repository.ReportRepository
	orders  repository.OrderRepository
	now     func() time.Time
}

func NewReportService(store *repository.Store) *ReportService {
	return &ReportService{reports: store.Reports, orders: store.Orders, now: time.Now}
}

// Range résout la période demandée; la date de fin explicite est incluse
func (s *ReportService) Range(q ReportQuery) (models.DateRange, error) {
	if q.Period != "" {
		r, ok := models.RangeForPeriod(q.Period, s.now())
		if !ok {
			return models.DateRange{}, invalid("période inconnue: %q", q.Period)
		}
		return r, nil
	}
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		return models.DateRange{}, invalid("période ou dates de début et de fin requises")
	}
	start := truncateDay(q.StartDate)
	end := truncateDay(q.EndDate).AddDate(0, 0, 1)
	if !start.Before(end) || q.EndDate.Before(q.StartDate) {
		return models.DateRange{}, invalid("la date de fin doit suivre la date de début")
	}
	return models.DateRange{Start: start, End: end}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TrendGrouping choisit la granularité de la courbe selon la largeur de l'intervalle
func TrendGrouping(r models.DateRange) string {
	days := r.End.Sub(r.Start).Hours() / 24
	switch {
	case days <= 31:
		return repository.GroupByDay
	case days <= 185:
		return repository.GroupByWeek
	default:
		return repository.GroupByMonth
	}
}

func (s *ReportService) SalesReport(ctx context.Context, q ReportQuery) (*models.SalesReport, error) {
	r, err := s.Range(q)
	if err != nil {
		return nil, err
	}
	metrics, err := s.reports.Metrics(ctx, r)
	if err != nil {
		return nil, err
	}
	page, limit := q.pagination()
	orders, total, err := s.orders.ListInRange(ctx, r, q.SearchQuery, page, limit)
	if err != nil {
		return nil, err
	}
	return &models.SalesReport{
		Range:      r,
		Metrics:    metrics,
		Orders:     orders,
		Pagination: models.NewPage(page, limit, total),
	}, nil
}

// Dashboard lance les agrégations en parallèle
func (s *ReportService) Dashboard(ctx context.Context, q ReportQuery) (*models.Dashboard, error) {
	r, err := s.Range(q)
	if err != nil {
		return nil, err
	}
	d := &models.Dashboard{Range: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Metrics, err = s.reports.Metrics(gctx, r)
		return
	})
	g.Go(func() (err error) {
		d.CategorySales, err = s.reports.CategorySales(gctx, r)
		return
	})
	g.Go(func() (err error) {
		d.BrandSales, err = s.reports.BrandSales(gctx, r)
		return
	})
	g.Go(func() (err error) {
		d.SalesTrend, err = s.reports.SalesTrend(gctx, r, TrendGrouping(r))
		return
	})
	g.Go(func() (err error) {
		d.TopProducts, err = s.reports.TopProducts(gctx, r, topProductsLimit)
		return
	})
	g.Go(func() (err error) {
		d.CouponUsage, err = s.reports.CouponUsage(gctx, r)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
