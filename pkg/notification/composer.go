package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Composer renders notification bodies for lifecycle events.
type Composer struct {
	tmpl        *template.Template
	linkBase    string
	frontendURL string
	now         func() time.Time
}

// NewComposer parses the embedded templates. linkBase is prefixed to the
// order id to build the payment link.
func NewComposer(linkBase, frontendURL string) (*Composer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	return &Composer{tmpl: tmpl, linkBase: linkBase, frontendURL: frontendURL, now: time.Now}, nil
}

func (c *Composer) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// PaymentLink is where the customer completes payment for order.
func (c *Composer) PaymentLink(order *models.Order) string {
	return c.linkBase + order.ID + "&amount=" + order.TotalAmount.StringFixed(2)
}

func (c *Composer) OrderPlaced(user *models.User, order *models.Order) (Message, error) {
	address := ""
	if user.Address != nil {
		address = *user.Address
	}
	body, err := c.render("order_placed.html", map[string]interface{}{
		"CustomerName":    user.Name,
		"OrderID":         order.ID,
		"OrderDate":       order.PlacedAt.Format("Jan 02, 2006 03:04 PM"),
		"DeliveryAddress": address,
		"Items":           order.Items,
		"TotalAmount":     order.TotalAmount.StringFixed(2),
		"PaymentLink":     c.PaymentLink(order),
		"Year":            c.now().Year(),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:      KindOrderPlaced,
		OrderID:   order.ID,
		Recipient: user.Email,
		Subject:   "Your Order Confirmation - Order #" + order.ID,
		Body:      body,
		IsHTML:    true,
	}, nil
}

func (c *Composer) PaymentSucceeded(user *models.User, order *models.Order, payment *models.Payment) (Message, error) {
	body, err := c.render("payment_succeeded.html", map[string]interface{}{
		"CustomerName":  user.Name,
		"OrderID":       order.ID,
		"Amount":        "$" + payment.Amount.StringFixed(2),
		"TransactionID": payment.TransactionID,
		"PaymentDate":   payment.PaidAt.Format("Jan 02, 2006 03:04 PM"),
		"FrontendURL":   c.frontendURL,
		"Year":          c.now().Year(),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:      KindPaymentSucceeded,
		OrderID:   order.ID,
		Recipient: user.Email,
		Subject:   "Payment Successful - Order #" + order.ID,
		Body:      body,
		IsHTML:    true,
	}, nil
}

func (c *Composer) PaymentFailed(user *models.User, order *models.Order, payment *models.Payment) (Message, error) {
	reason := ""
	if payment.FailureReason != nil {
		reason = *payment.FailureReason
	}
	body, err := c.render("payment_failed.html", map[string]interface{}{
		"CustomerName":  user.Name,
		"OrderID":       order.ID,
		"Amount":        "$" + payment.Amount.StringFixed(2),
		"FailureReason": reason,
		"Year":          c.now().Year(),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:      KindPaymentFailed,
		OrderID:   order.ID,
		Recipient: user.Email,
		Subject:   "Payment Failed - Order #" + order.ID,
		Body:      body,
		IsHTML:    true,
	}, nil
}

func (c *Composer) AccountDeactivated(user *models.User) Message {
	return Message{
		Kind:      KindAccountDeactivated,
		Recipient: user.Email,
		Subject:   "Account Deactivated",
		Body:      "Your account has been deactivated. If this was a mistake, please contact support.",
	}
}
