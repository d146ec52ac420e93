package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/utils"
)

// PDFRenderer convertit le HTML de la facture en PDF
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

type InvoiceService struct {
	orders repository.OrderRepository
	render PDFRenderer
	mailer utils.Mailer
	gstin  string
	now    func() time.Time
}

func NewInvoiceService(orders repository.OrderRepository, gstin string, render PDFRenderer) *InvoiceService {
	if render == nil {
		render = utils.RenderInvoicePDF
	}
	return &InvoiceService{orders: orders, render: render, gstin: gstin, now: time.Now}
}

// WithMailer active l'envoi des factures par email
func (s *InvoiceService) WithMailer(m utils.Mailer) *InvoiceService {
	s.mailer = m
	return s
}

// Invoice retourne le PDF d'une commande non annulée appartenant à l'utilisateur
func (s *InvoiceService) Invoice(ctx context.Context, userID primitive.ObjectID, orderID string) ([]byte, error) {
	_, pdf, err := s.build(ctx, userID, orderID)
	return pdf, err
}

// Send envoie la facture en pièce jointe à l'email de livraison
func (s *InvoiceService) Send(ctx context.Context, userID primitive.ObjectID, orderID string) error {
	if s.mailer == nil {
		return ErrUnavailable
	}
	o, pdf, err := s.build(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if o.ShippingAddress.Email == "" {
		return invalid("aucun email de livraison sur la commande")
	}
	subject, body, err := utils.InvoiceEmail(o.ShippingAddress.Name, o.OrderID)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, o.ShippingAddress.Email, subject, body,
		utils.Attachment{Name: "invoice-" + o.OrderID + ".pdf", Data: pdf})
	if err != nil {
		return fmt.Errorf("%w: envoi de la facture: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *InvoiceService) build(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Order, []byte, error) {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.User != userID {
		return nil, nil, ErrNotFound
	}
	if o.OrderStatus == models.OrderCancelled {
		return nil, nil, invalidAs(ErrOrderCancelled, "pas de facture pour une commande annulée")
	}

	html, err := utils.InvoiceHTML(o, s.gstin, s.now())
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.render(ctx, html)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return o, pdf, nil
}
