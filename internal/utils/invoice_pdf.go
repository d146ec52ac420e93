package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"stc_back_end/internal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"
)

// InvoiceQR encode la référence de la commande en PNG base64 prêt pour <img src="...">
func InvoiceQR(orderID string, amount float64) (string, error) {
	payload := fmt.Sprintf("STC-INVOICE\n%s\n%.2f", orderID, amount)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Facture {{.Order.OrderID}}</title>
<style>
 body{font-family:Arial,sans-serif;color:#222;margin:40px;}
 table{width:100%;border-collapse:collapse;margin-top:20px;}
 th,td{border:1px solid #ddd;padding:8px;font-size:13px;}
 th{background:#f0f0f0;text-align:left;}
 .right{text-align:right;}
 .muted{color:#777;font-size:12px;}
</style></head>
<body>
 <table style="border:none;margin:0;"><tr>
  <td style="border:none;"><h1>STC Laptops</h1><p class="muted">Facture fiscale<br>GSTIN: {{.GSTIN}}</p></td>
  <td style="border:none;" class="right"><img src="{{.QR}}" width="110" height="110"></td>
 </tr></table>
 <p><strong>Commande :</strong> {{.Order.OrderID}}<br>
    <strong>Date :</strong> {{date .Order.PlacedAt}}<br>
    <strong>Paiement :</strong> {{.Order.PaymentMethod}} ({{.Order.PaymentStatus}})</p>
 <p><strong>Livraison :</strong><br>{{with .Order.ShippingAddress}}{{.Name}}<br>{{.Street}} {{.Landmark}}<br>{{.City}}, {{.District}}, {{.State}} - {{.Pincode}}<br>{{.Phone}}{{end}}</p>
 <table>
  <tr><th>Produit</th><th class="right">Qté</th><th class="right">Prix</th><th class="right">Total</th><th>Statut</th></tr>
  {{range .Order.OrderItems}}<tr><td>{{.ProductName}}</td><td class="right">{{.Quantity}}</td><td class="right">{{money .Price}}</td><td class="right">{{money .TotalPrice}}</td><td>{{.OrderStatus}}</td></tr>{{end}}
 </table>
 <table style="width:45%;margin-left:55%;">
  <tr><td>Montant commandé</td><td class="right">{{money .Order.OrderedAmount}}</td></tr>
  <tr><td>Remise</td><td class="right">-{{money .Order.TotalDiscount}}</td></tr>
  <tr><td>Coupon</td><td class="right">-{{money .Order.CouponDiscount}}</td></tr>
  <tr><td>Livraison</td><td class="right">{{money .Order.ShippingFee}}</td></tr>
  <tr><th>Total à payer</th><th class="right">{{money .Total}}</th></tr>
 </table>
 <p class="muted">1. Tous les prix sont TTC.<br>2. Facture générée le {{date .IssuedAt}}.</p>
</body></html>`))

// InvoiceHTML rend le gabarit HTML de la facture
func InvoiceHTML(order *models.Order, gstin string, now time.Time) (string, error) {
	total := order.PayableAmount + order.ShippingFee
	qr, err := InvoiceQR(order.OrderID, total)
	if err != nil {
		return "", fmt.Errorf("erreur génération QR: %w", err)
	}
	var buf bytes.Buffer
	err = invoiceTemplate.Execute(&buf, map[string]interface{}{
		"Order":    order,
		"QR":       template.URL(qr),
		"GSTIN":    gstin,
		"Total":    total,
		"IssuedAt": now,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderInvoicePDF imprime le HTML en PDF via un Chrome headless
func RenderInvoicePDF(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)...)
	defer cancel()

	cctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// timeout pour éviter de bloquer
	cctx, cancel = context.WithTimeout(cctx, 30*time.Second)
	defer cancel()

	var pdfBuf []byte
	err := chromedp.Run(cctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			pdfBuf = buf
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("rendu PDF: %w", err)
	}
	return pdfBuf, nil
}
