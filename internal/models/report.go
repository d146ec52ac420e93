package models

import "time"

const (
	PeriodDay   = "thisDay"
	PeriodWeek  = "thisWeek"
	PeriodMonth = "thisMonth"
	PeriodYear  = "thisYear"
)

// DateRange borne [Start, End) d'un rapport
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RangeForPeriod convertit un raccourci de période en intervalle; ok=false si inconnu
func RangeForPeriod(period string, now time.Time) (DateRange, bool) {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch period {
	case PeriodDay:
		return DateRange{Start: today, End: today.AddDate(0, 0, 1)}, true
	case PeriodWeek:
		// semaine du dimanche au samedi
		start := today.AddDate(0, 0, -int(today.Weekday()))
		return DateRange{Start: start, End: start.AddDate(0, 0, 7)}, true
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, true
	case PeriodYear:
		start := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return DateRange{Start: start, End: start.AddDate(1, 0, 0)}, true
	}
	return DateRange{}, false
}

type SalesMetrics struct {
	TotalSales      float64 `json:"totalSales" bson:"totalSales"`
	TotalOrders     int     `json:"totalOrders" bson:"totalOrders"`
	TotalDiscounts  float64 `json:"totalDiscounts" bson:"totalDiscounts"`
	CouponDiscounts float64 `json:"couponDiscounts" bson:"couponDiscounts"`
	Customers       int     `json:"customers" bson:"customers"`
}

type SalesReport struct {
	Range      DateRange    `json:"range"`
	Metrics    SalesMetrics `json:"metrics"`
	Orders     []Order      `json:"orders"`
	Pagination Page         `json:"pagination"`
}

type CategorySales struct {
	CategoryID   string  `json:"categoryId" bson:"_id"`
	CategoryName string  `json:"categoryName" bson:"categoryName"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	Revenue      float64 `json:"revenue" bson:"revenue"`
}

type BrandSales struct {
	Brand    string  `json:"brand" bson:"_id"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Revenue  float64 `json:"revenue" bson:"revenue"`
}

type TrendPoint struct {
	Bucket  string  `json:"bucket" bson:"_id"`
	Orders  int     `json:"orders" bson:"orders"`
	Revenue float64 `json:"revenue" bson:"revenue"`
}

type TopProduct struct {
	ProductID   string  `json:"productId" bson:"_id"`
	ProductName string  `json:"productName" bson:"productName"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	Revenue     float64 `json:"revenue" bson:"revenue"`
}

type CouponUsage struct {
	CouponCode    string  `json:"couponCode" bson:"_id"`
	Uses          int     `json:"uses" bson:"uses"`
	TotalDiscount float64 `json:"totalDiscount" bson:"totalDiscount"`
}

type Dashboard struct {
	Range         DateRange       `json:"range"`
	Metrics       SalesMetrics    `json:"metrics"`
	CategorySales []CategorySales `json:"categorySales"`
	BrandSales    []BrandSales    `json:"brandSales"`
	SalesTrend    []TrendPoint    `json:"salesTrend"`
	TopProducts   []TopProduct    `json:"topProducts"`
	CouponUsage   []CouponUsage   `json:"couponUsage"`
}

// Page porte la pagination commune aux listes
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPage calcule le nombre de pages
func NewPage(page, limit int, total int64) Page {
	p := Page{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}
