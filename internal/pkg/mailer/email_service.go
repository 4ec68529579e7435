package mailer

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

// Receipt is what the subscription receipt mail shows.
type Receipt struct {
	OrderID   string
	Amount    int64
	Currency  string
	Months    int
	Credits   int
	Balance   int
	ExpiresAt time.Time
}

type IEmailService interface {
	SendSubscriptionReceipt(toEmail string, r Receipt) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	clientURL   string
}

func NewEmailService(host string, port int, username, password, senderName, clientURL string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
		clientURL:   clientURL,
	}
}

func (s *emailService) SendSubscriptionReceipt(toEmail string, r Receipt) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your subscription is active")
	m.SetBody("text/html", ReceiptBody(r, s.clientURL))

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send receipt to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Receipt for order %s sent to %s\n", r.OrderID, toEmail)
	return nil
}

func ReceiptBody(r Receipt, clientURL string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thank you for subscribing!</h2>
			<p>Order <strong>%s</strong>: %d %s for %d month(s).</p>
			<p>%d credits were added. Your balance is now <strong>%d</strong>.</p>
			<p>Your subscription is active until %s.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Generate questions</a>
		</div>
	`,
		html.EscapeString(r.OrderID), r.Amount, html.EscapeString(r.Currency), r.Months,
		r.Credits, r.Balance,
		r.ExpiresAt.Format("2 January 2006"),
		html.EscapeString(clientURL),
	)
}
