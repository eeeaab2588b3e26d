package push

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
)

type stubMessages struct {
	mu      sync.Mutex
	parents []string
	reqs    []*fcm.SendMessageRequest
	err     error
}

func (s *stubMessages) send(_ context.Context, parent string, req *fcm.SendMessageRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents = append(s.parents, parent)
	s.reqs = append(s.reqs, req)
	return s.err
}

func TestSendBuildsRequest(t *testing.T) {
	api := &stubMessages{}
	sender := newFCMSender(api, "brewcart-prod", config.FCMConfig{RatePerSecond: 100, Burst: 5, DefaultLinkURL: "/admin/orders", LinkBaseURL: "https://admin.brewcart.test"})

	err := sender.Send(context.Background(), Message{
		Token: "tok-1",
		Title: "New order #1001",
		Body:  "Jane placed an order for $12.50",
		Data:  map[string]string{"order_id": "o1", "store_id": "s1", "type": "new_order"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"projects/brewcart-prod"}, api.parents)
	msg := api.reqs[0].Message
	require.Equal(t, "tok-1", msg.Token)
	require.Equal(t, "New order #1001", msg.Notification.Title)
	require.Equal(t, "o1", msg.Data["order_id"])
	require.Equal(t, "https://admin.brewcart.test/admin/orders", msg.Webpush.FcmOptions.Link)
}

func TestSendWebpushLinkIsAbsoluteHTTPS(t *testing.T) {
	api := &stubMessages{}
	sender := newFCMSender(api, "p", config.FCMConfig{DefaultLinkURL: "/admin/orders", LinkBaseURL: "https://shop.example.com/dashboard/"})

	require.NoError(t, sender.Send(context.Background(), Message{Token: "a", Link: "/admin/orders/42"}))
	require.Equal(t, "https://shop.example.com/admin/orders/42", api.reqs[0].Message.Webpush.FcmOptions.Link)

	require.NoError(t, sender.Send(context.Background(), Message{Token: "b", Link: "https://other.example.com/x"}))
	require.Equal(t, "https://other.example.com/x", api.reqs[1].Message.Webpush.FcmOptions.Link)

	// A plain http link is rejected and the https default takes its place.
	require.NoError(t, sender.Send(context.Background(), Message{Token: "c", Link: "http://shop.example.com/admin"}))
	require.Equal(t, "https://shop.example.com/admin/orders", api.reqs[2].Message.Webpush.FcmOptions.Link)

	// Without an https origin a relative link cannot be made absolute, so web push gets no link.
	plain := newFCMSender(api, "p", config.FCMConfig{DefaultLinkURL: "/admin/orders", LinkBaseURL: "http://localhost:3000"})
	require.NoError(t, plain.Send(context.Background(), Message{Token: "d", Link: "/admin/orders/42"}))
	last := api.reqs[len(api.reqs)-1].Message
	require.Nil(t, last.Webpush)
	require.Equal(t, "d", last.Token)
}

func TestSendClassifiesUnregistered(t *testing.T) {
	api := &stubMessages{err: &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}}
	sender := newFCMSender(api, "p", config.FCMConfig{})
	err := sender.Send(context.Background(), Message{Token: "gone"})
	require.ErrorIs(t, err, ErrUnregistered)

	api.err = &googleapi.Error{Code: http.StatusBadRequest, Body: `{"error":{"details":[{"errorCode":"UNREGISTERED"}]}}`}
	err = sender.Send(context.Background(), Message{Token: "gone"})
	require.ErrorIs(t, err, ErrUnregistered)

	api.err = &googleapi.Error{Code: http.StatusServiceUnavailable}
	err = sender.Send(context.Background(), Message{Token: "t"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnregistered))
}

func TestSendRespectsLimiterAndContext(t *testing.T) {
	api := &stubMessages{}
	sender := newFCMSender(api, "p", config.FCMConfig{RatePerSecond: 0.001, Burst: 1})

	require.NoError(t, sender.Send(context.Background(), Message{Token: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sender.Send(ctx, Message{Token: "b"})
	require.Error(t, err)
	require.Len(t, api.reqs, 1)
}

func TestSendRequiresToken(t *testing.T) {
	sender := newFCMSender(&stubMessages{}, "p", config.FCMConfig{})
	require.Error(t, sender.Send(context.Background(), Message{}))
}
