package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"stc_back_end/internal/models"
)

const (
	OTPPurposeSignup   = "signup"
	OTPPurposePassword = "password"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
  <div style="max-width:600px;margin:40px auto;background:#fff;border-radius:12px;padding:30px;">
    <h2 style="color:#333;">{{.Title}}</h2>
    <p>Bonjour {{.Name}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size:32px;letter-spacing:8px;font-weight:700;text-align:center;color:#667eea;">{{.OTP}}</p>
    <p style="color:#666;font-size:13px;">Ce code expire dans 2 minutes. Ne le communiquez à personne.</p>
    <p style="margin-top:30px;color:#555;">Cordialement,<br><strong>L'équipe STC</strong></p>
  </div>
</body>
</html>`))

// OTPEmail construit le sujet et le corps de l'email contenant le code
func OTPEmail(name, otp, purpose string) (string, string, error) {
	data := map[string]string{"Name": name, "OTP": otp}
	subject := "🔐 Votre code de vérification - STC"
	data["Title"] = "Vérifiez votre adresse e-mail"
	data["Intro"] = "Voici votre code pour finaliser votre inscription :"
	if purpose == OTPPurposePassword {
		subject = "🔑 Réinitialisation du mot de passe - STC"
		data["Title"] = "Mot de passe oublié"
		data["Intro"] = "Voici votre code pour réinitialiser votre mot de passe :"
	}

	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
  <div style="max-width:600px;margin:40px auto;background:#fff;border-radius:12px;padding:30px;">
    <h2 style="color:{{.Color}};">{{.Icon}} Commande {{.OrderID}}</h2>
    <p>{{.Message}}</p>
    <table style="width:100%;border-collapse:collapse;margin:20px 0;">
      <tr style="background:#f0f0f0;"><th style="padding:8px;text-align:left;">Produit</th><th style="padding:8px;">Qté</th><th style="padding:8px;">Statut</th></tr>
      {{range .Items}}<tr><td style="padding:8px;">{{.ProductName}}</td><td style="padding:8px;text-align:center;">{{.Quantity}}</td><td style="padding:8px;">{{.OrderStatus}}</td></tr>{{end}}
    </table>
    <p><strong>Montant payable :</strong> {{printf "%.2f" .Payable}}</p>
    <p style="margin-top:30px;color:#555;">Cordialement,<br><strong>L'équipe STC</strong></p>
  </div>
</body>
</html>`))

func statusPresentation(status string) (subject, message, icon, color string) {
	switch status {
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - STC", "Votre commande est en route.", "📦", "#3b82f6"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - STC", "Votre commande a été livrée. Merci pour votre achat !", "🎉", "#10b981"
	case models.OrderCancelled:
		return "❌ Commande annulée - STC", "Votre commande a été annulée.", "❌", "#ef4444"
	case models.OrderReturned:
		return "💰 Retour accepté - STC", "Votre retour a été accepté et le remboursement crédité sur votre portefeuille.", "💰", "#f59e0b"
	case models.OrderPlaced:
		return "✅ Commande confirmée - STC", "Votre commande a été confirmée.", "✅", "#10b981"
	default:
		return "📋 Mise à jour de votre commande - STC", fmt.Sprintf("Nouveau statut : %s.", status), "📋", "#667eea"
	}
}

// OrderStatusEmail construit l'email de notification de changement de statut
func OrderStatusEmail(order *models.Order, status string) (string, string, error) {
	subject, message, icon, color := statusPresentation(status)
	var buf bytes.Buffer
	err := statusTemplate.Execute(&buf, map[string]interface{}{
		"OrderID": order.OrderID,
		"Message": message,
		"Icon":    icon,
		"Color":   color,
		"Items":   order.OrderItems,
		"Payable": order.PayableAmount,
	})
	if err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

var invoiceMailTemplate = template.Must(template.New("invoice-mail").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
  <div style="max-width:600px;margin:40px auto;background:#fff;border-radius:12px;padding:30px;">
    <p>Bonjour {{.Name}},</p>
    <p>Veuillez trouver ci-joint la facture de votre commande <strong>{{.OrderID}}</strong>.</p>
    <p style="margin-top:30px;color:#555;">Cordialement,<br><strong>L'équipe STC</strong></p>
  </div>
</body>
</html>`))

// InvoiceEmail construit le sujet et le corps de l'email qui accompagne la facture PDF
func InvoiceEmail(name, orderID string) (string, string, error) {
	var buf bytes.Buffer
	err := invoiceMailTemplate.Execute(&buf, map[string]string{"Name": name, "OrderID": orderID})
	if err != nil {
		return "", "", err
	}
	return "Votre facture STC " + orderID, buf.String(), nil
}
