package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/gcp"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"golang.org/x/time/rate"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUnregistered means FCM no longer recognizes the token and it should be deleted.
var ErrUnregistered = errors.New("push token unregistered")

// Message is one notification addressed to a single device token.
type Message struct {
	Token string
	Title string
	Body  string
	Link  string
	Data  map[string]string
}

// Sender delivers push messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type messagesAPI interface {
	send(ctx context.Context, parent string, req *fcm.SendMessageRequest) error
}

type fcmMessages struct {
	svc *fcm.Service
}

func (m fcmMessages) send(ctx context.Context, parent string, req *fcm.SendMessageRequest) error {
	_, err := m.svc.Projects.Messages.Send(parent, req).Context(ctx).Do()
	return err
}

// FCMSender sends through the Firebase Cloud Messaging HTTP v1 API behind a token bucket.
type FCMSender struct {
	api     messagesAPI
	parent  string
	limiter *rate.Limiter
	base    *url.URL
	link    string
}

// NewFCMSender builds a sender for the configured Firebase project.
func NewFCMSender(ctx context.Context, g config.GCPConfig, cfg config.FCMConfig, logg *logger.Logger) (*FCMSender, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(g.ProjectID)
	}
	if projectID == "" {
		return nil, errors.New("fcm project id is required")
	}

	svc, err := fcm.NewService(ctx, gcp.ClientOptions(g, option.WithScopes(fcm.FirebaseMessagingScope))...)
	if err != nil {
		return nil, fmt.Errorf("creating fcm service: %w", err)
	}

	sender := newFCMSender(fcmMessages{svc: svc}, projectID, cfg)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "fcm_project", projectID), "fcm sender initialized")
		if sender.base == nil {
			logg.Warn(logg.WithField(ctx, "link_base_url", cfg.LinkBaseURL), "fcm link base is not an https url; web push links disabled")
		}
	}
	return sender, nil
}

func newFCMSender(api messagesAPI, projectID string, cfg config.FCMConfig) *FCMSender {
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &FCMSender{
		api:     api,
		parent:  "projects/" + projectID,
		limiter: rate.NewLimiter(limit, burst),
		base:    httpsBase(cfg.LinkBaseURL),
		link:    cfg.DefaultLinkURL,
	}
}

func httpsBase(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil
	}
	return u
}

// resolveLink returns an absolute https URL for link, or "" when none can be built.
func (s *FCMSender) resolveLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if s.base == nil {
			return ""
		}
		u = s.base.ResolveReference(u)
	}
	if u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}

// Send waits for a limiter slot and then delivers msg.
func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.api == nil {
		return errors.New("fcm sender not initialized")
	}
	if strings.TrimSpace(msg.Token) == "" {
		return errors.New("push token is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for push slot: %w", err)
	}
	return classify(s.api.send(ctx, s.parent, s.request(msg)))
}

func (s *FCMSender) request(msg Message) *fcm.SendMessageRequest {
	link := s.resolveLink(msg.Link)
	if link == "" {
		link = s.resolveLink(s.link)
	}
	out := &fcm.Message{
		Token: msg.Token,
		Notification: &fcm.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &fcm.AndroidConfig{
			Priority: "HIGH",
		},
	}
	if link != "" {
		out.Webpush = &fcm.WebpushConfig{FcmOptions: &fcm.WebpushFcmOptions{Link: link}}
	}
	return &fcm.SendMessageRequest{Message: out}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound ||
			strings.Contains(apiErr.Body, "UNREGISTERED") ||
			strings.Contains(apiErr.Message, "UNREGISTERED") {
			return fmt.Errorf("%w: %s", ErrUnregistered, apiErr.Message)
		}
	}
	return fmt.Errorf("fcm send: %w", err)
}
