package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/channel"
	"botpos-chat-backend/internal/model"

	"github.com/google/uuid"
)

type OpenSessionParams struct {
	Channel    string
	ExternalID string
	Name       string
	Phone      string
	Email      string
}

type OpenSessionResult struct {
	Session Session
	Created bool
}

type InboundParams struct {
	Channel    string
	ExternalID string
	Text       string
	Attachment *model.Attachment
}

type SendParams struct {
	CustomerID string
	Channel    string
	AdminID    string
	Text       string
	Attachment *model.Attachment
}

// SendResult tells "not sent" apart from "sent but not stored".
type SendResult struct {
	Message   model.MessageItem
	Delivered bool
}

func parseChannel(raw string) (channel.Channel, error) {
	ch, err := channel.Parse(raw)
	if err != nil {
		return "", apperror.Validation(err.Error())
	}
	return ch, nil
}

// OpenSession links an external platform user to a customer and makes sure
// the (customer, channel) session exists. Repeated calls return the same
// session.
func (s *Service) OpenSession(ctx context.Context, p OpenSessionParams) (OpenSessionResult, error) {
	ch, err := parseChannel(p.Channel)
	if err != nil {
		return OpenSessionResult{}, err
	}
	externalID := strings.TrimSpace(p.ExternalID)
	if externalID == "" {
		return OpenSessionResult{}, apperror.Validation("externalId is required")
	}

	customer, err := s.customerFor(ctx, ch, externalID, p)
	if err != nil {
		return OpenSessionResult{}, err
	}

	key := model.SessionKey(customer.CustomerID, ch.String())
	if existing, err := s.repo.GetSession(ctx, key); err == nil {
		out, err := s.decorate(ctx, existing)
		return OpenSessionResult{Session: out}, err
	} else if !errors.Is(err, ErrNotFound) {
		return OpenSessionResult{}, apperror.Internal("failed to load session", err)
	}

	at := s.now().UTC().Format(time.RFC3339Nano)
	session := model.SessionItem{
		PK:            key,
		CustomerID:    customer.CustomerID,
		Channel:       ch.String(),
		ExternalID:    externalID,
		CustomerName:  customer.Name,
		LastMessageAt: at,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	created := true
	if err := s.repo.CreateSession(ctx, session); err != nil {
		if !errors.Is(err, ErrExists) {
			return OpenSessionResult{}, apperror.PersistFailed("failed to create session", err)
		}
		created = false
		if session, err = s.repo.GetSession(ctx, key); err != nil {
			return OpenSessionResult{}, apperror.Internal("failed to load session", err)
		}
	}

	out, err := s.decorate(ctx, session)
	if err != nil {
		return OpenSessionResult{}, err
	}
	if created {
		s.logger.Info("chat session opened", "customerId", customer.CustomerID, "channel", ch)
		s.publish(ctx, s.sessionEvent(ctx, session))
	}
	return OpenSessionResult{Session: out, Created: created}, nil
}

func (s *Service) customerFor(ctx context.Context, ch channel.Channel, externalID string, p OpenSessionParams) (model.CustomerItem, error) {
	identity, err := s.repo.GetChannelIdentity(ctx, ch.String(), externalID)
	if err == nil {
		customer, err := s.repo.GetCustomer(ctx, identity.CustomerID)
		if err != nil {
			return model.CustomerItem{}, apperror.Internal("failed to load customer", err)
		}
		return customer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.CustomerItem{}, apperror.Internal("failed to load channel identity", err)
	}

	at := s.now().UTC().Format(time.RFC3339)
	customer := model.CustomerItem{
		CustomerID: uuid.NewString(),
		Name:       strings.TrimSpace(p.Name),
		Phone:      strings.TrimSpace(p.Phone),
		Email:      strings.ToLower(strings.TrimSpace(p.Email)),
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if customer.Name == "" {
		customer.Name = fmt.Sprintf("%s user %s", ch, externalID)
	}
	switch ch {
	case channel.Telegram:
		customer.TelegramID = externalID
	case channel.Viber:
		customer.ViberID = externalID
	case channel.Messenger:
		customer.MessengerID = externalID
	}
	if err := s.repo.PutCustomer(ctx, customer); err != nil {
		return model.CustomerItem{}, apperror.PersistFailed("failed to store customer", err)
	}

	err = s.repo.CreateChannelIdentity(ctx, model.ChannelIdentityItem{
		PK:         model.ChannelIdentityPK(ch.String(), externalID),
		Channel:    ch.String(),
		ExternalID: externalID,
		CustomerID: customer.CustomerID,
		CreatedAt:  at,
	})
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrExists) {
		return model.CustomerItem{}, apperror.PersistFailed("failed to link channel identity", err)
	}

	// A concurrent open linked the identity first; use its customer.
	identity, err = s.repo.GetChannelIdentity(ctx, ch.String(), externalID)
	if err != nil {
		return model.CustomerItem{}, apperror.Internal("failed to load channel identity", err)
	}
	winner, err := s.repo.GetCustomer(ctx, identity.CustomerID)
	if err != nil {
		return model.CustomerItem{}, apperror.Internal("failed to load customer", err)
	}
	return winner, nil
}

// OnInboundMessage stores a message a customer sent on a platform. The
// adapter must have opened the session first.
func (s *Service) OnInboundMessage(ctx context.Context, p InboundParams) (model.MessageItem, error) {
	if err := validateContent(model.SenderCustomer, p.Text, p.Attachment); err != nil {
		return model.MessageItem{}, err
	}
	ch, err := parseChannel(p.Channel)
	if err != nil {
		return model.MessageItem{}, err
	}
	externalID := strings.TrimSpace(p.ExternalID)

	identity, err := s.repo.GetChannelIdentity(ctx, ch.String(), externalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.MessageItem{}, sessionNotFound(err)
		}
		return model.MessageItem{}, apperror.Internal("failed to load channel identity", err)
	}
	session, err := s.repo.GetSession(ctx, model.SessionKey(identity.CustomerID, ch.String()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.MessageItem{}, sessionNotFound(err)
		}
		return model.MessageItem{}, apperror.Internal("failed to load session", err)
	}

	return s.appendAndPublish(ctx, session, AppendParams{
		CustomerID: identity.CustomerID,
		Channel:    ch.String(),
		SenderType: model.SenderCustomer,
		SenderID:   externalID,
		Text:       p.Text,
		Attachment: p.Attachment,
	})
}

// SendAdminMessage delivers through the channel adapter first and stores
// the message only once the platform accepted it.
func (s *Service) SendAdminMessage(ctx context.Context, p SendParams) (SendResult, error) {
	if err := validateContent(model.SenderAdmin, p.Text, p.Attachment); err != nil {
		return SendResult{}, err
	}
	session, err := s.resolveSession(ctx, p.CustomerID, p.Channel)
	if err != nil {
		return SendResult{}, err
	}

	ch := channel.Channel(session.Channel)
	if s.sender == nil {
		return SendResult{}, apperror.ChannelUnavailable("no channel adapter configured", channel.ErrUnavailable)
	}
	if err := s.sender.SendOutbound(ctx, ch, session.ExternalID, outboundText(p.Text, p.Attachment)); err != nil {
		s.metrics.outboundFailed(ch.String())
		s.logger.Warn("outbound send failed", "customerId", session.CustomerID, "channel", ch, "error", err)
		return SendResult{}, apperror.ChannelUnavailable(fmt.Sprintf("message was not delivered to %s", ch), err)
	}

	msg, err := s.appendAndPublish(ctx, session, AppendParams{
		CustomerID: session.CustomerID,
		Channel:    session.Channel,
		SenderType: model.SenderAdmin,
		SenderID:   p.AdminID,
		Text:       p.Text,
		Attachment: p.Attachment,
	})
	if err != nil {
		s.logger.Error("delivered message could not be stored", "customerId", session.CustomerID, "channel", ch, "error", err)
		return SendResult{Delivered: true}, apperror.PersistFailed("message was delivered but could not be stored", err)
	}
	return SendResult{Message: msg, Delivered: true}, nil
}

func outboundText(text string, attachment *model.Attachment) string {
	text = strings.TrimSpace(text)
	if attachment == nil || attachment.URL == "" {
		return text
	}
	if text == "" {
		return attachment.URL
	}
	return text + "\n" + attachment.URL
}
