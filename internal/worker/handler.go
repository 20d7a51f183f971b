package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/zakup/internal/domain"
)

// NotificationHandler turns order events into e-mails sent through the email
// service.
type NotificationHandler struct {
	emailServiceURL string
	mailDomain      string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL, mailDomain string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		mailDomain:      mailDomain,
		httpClient:      client,
		logger:          logger,
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *NotificationHandler) address(accountID string) string {
	return accountID + "@" + h.mailDomain
}

// HandlePlaced confirms the order to the buyer and tells every seller on the
// order which of their products were bought.
func (h *NotificationHandler) HandlePlaced(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "user_id", event.UserID)

	var errs []error
	if err := h.sendEmail(ctx, buyerConfirmation(event, h.address(event.UserID))); err != nil {
		errs = append(errs, fmt.Errorf("send confirmation to buyer: %w", err))
	}

	order := domain.Order{Items: event.Items}
	for _, seller := range order.Sellers() {
		if err := h.sendEmail(ctx, sellerNotice(event, seller, h.address(seller))); err != nil {
			errs = append(errs, fmt.Errorf("notify seller %s: %w", seller, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	h.logger.Info("order notifications sent", "order_id", event.OrderID, "sellers", len(order.Sellers()))
	return nil
}

func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order status changed event: %w", err)
	}

	h.logger.Info("processing order status changed event", "order_id", event.OrderID, "status", event.To)

	return h.sendEmail(ctx, emailRequest{
		To:      h.address(event.UserID),
		Subject: fmt.Sprintf("Commande %s : %s", event.OrderID, event.To),
		Body:    fmt.Sprintf("Le statut de votre commande %s est passé de « %s » à « %s ».", event.OrderID, event.From, event.To),
	})
}

func buyerConfirmation(event domain.OrderPlacedEvent, to string) emailRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Merci pour votre commande %s.\n\n", event.OrderID)
	for _, item := range event.Items {
		fmt.Fprintf(&b, "- %s x%d : %s EUR\n", item.Name, item.Quantity, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal : %s EUR", event.Total.StringFixed(2))

	return emailRequest{
		To:      to,
		Subject: "Confirmation de commande " + event.OrderID,
		Body:    b.String(),
	}
}

func sellerNotice(event domain.OrderPlacedEvent, sellerID, to string) emailRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Nouvelle commande %s :\n\n", event.OrderID)
	for _, item := range event.Items {
		if item.SellerID != sellerID {
			continue
		}
		fmt.Fprintf(&b, "- %s x%d\n", item.Name, item.Quantity)
	}

	return emailRequest{
		To:      to,
		Subject: "Nouvelle commande " + event.OrderID,
		Body:    b.String(),
	}
}

func (h *NotificationHandler) sendEmail(ctx context.Context, email emailRequest) error {
	data, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
