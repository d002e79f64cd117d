package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/middleware"
	"botpos-chat-backend/internal/channel"
	internaljwt "botpos-chat-backend/internal/jwt"
	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/queue"
	authsvc "botpos-chat-backend/internal/service/auth"
	chatsvc "botpos-chat-backend/internal/service/chat"
	flowsvc "botpos-chat-backend/internal/service/flow"
	inboxsvc "botpos-chat-backend/internal/service/inbox"
	"botpos-chat-backend/internal/storage"
	"botpos-chat-backend/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	testPrefix        = "/api/admin/v1"
	testChannelPrefix = "/api/channel/v1"
	testChannelSecret = "adapter-secret"
	testAdminEmail    = "owner@shop.mm"
	testAdminPassword = "Sup3rS3cret!"
)

type outbound struct {
	Channel    channel.Channel
	ExternalID string
	Text       string
}

type testEnv struct {
	handler http.Handler
	token   string

	mu      sync.Mutex
	sent    []outbound
	sendErr error

	store *storage.MemoryStore
}

func (e *testEnv) sentMessages() []outbound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]outbound(nil), e.sent...)
}

func (e *testEnv) failSends(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendErr = err
}

func (e *testEnv) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + e.token}
}

func (e *testEnv) channelAuth() map[string]string {
	return map[string]string{middleware.ChannelSecretHeader: testChannelSecret}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	internaljwt.Configure("endpoint-test-secret", time.Hour)

	env := &testEnv{store: storage.NewMemoryStore()}
	logger := logging.Discard()

	sender := channel.SenderFunc(func(ctx context.Context, ch channel.Channel, externalID, text string) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		if env.sendErr != nil {
			return env.sendErr
		}
		env.sent = append(env.sent, outbound{Channel: ch, ExternalID: externalID, Text: text})
		return nil
	})

	chatRepo := chatsvc.NewMemoryRepository()
	chat := chatsvc.NewWithRepository(chatRepo, chatsvc.Deps{
		Sender:   sender,
		Notifier: websocket.NopPublisher{},
		Signer:   env.store,
		Metrics:  chatsvc.NewMetrics(prometheus.NewRegistry()),
		Logger:   logger,
	})

	inboxRepo := inboxsvc.NewMemoryRepository()
	inboxRepo.CustomerLookup = func(ctx context.Context, customerID string) (bool, error) {
		_, err := chatRepo.GetCustomer(ctx, customerID)
		if errors.Is(err, chatsvc.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
	inbox := inboxsvc.NewWithRepository(inboxRepo, chat, logger, nil)

	flows := flowsvc.NewWithRepository(flowsvc.NewMemoryRepository(), logger, nil)

	auth := authsvc.NewWithRepository(authsvc.NewMemoryRepository(), nil)
	if _, err := auth.CreateAdmin(context.Background(), authsvc.CreateAdminParams{
		Name:     "Owner",
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	q := queue.NewRequestQueueManager(32, 4, logger)
	t.Cleanup(q.Shutdown)

	server := api.NewAPIServer(":0", q, api.Options{Logger: logger}, func(mux *http.ServeMux, s *api.APIServer) {
		guard := middleware.ValidateAdminJWT

		a := NewAuthEndpoints(auth)
		mux.HandleFunc(testPrefix+"/auth/login", s.MakeHTTPHandleFunc(a.Login))
		mux.HandleFunc(testPrefix+"/auth/me", s.MakeHTTPHandleFunc(a.Me, guard))
		mux.HandleFunc(testPrefix+"/admins", s.MakeHTTPHandleFunc(a.Admins, guard))

		se := NewSessionEndpoints(chat, env.store)
		mux.HandleFunc(testPrefix+"/sessions", s.MakeHTTPHandleFunc(se.Sessions, guard))
		mux.HandleFunc(testPrefix+"/sessions/unread-count", s.MakeHTTPHandleFunc(se.UnreadCount, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/messages", s.MakeHTTPHandleFunc(se.Messages, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/read", s.MakeHTTPHandleFunc(se.Read, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/typing", s.MakeHTTPHandleFunc(se.Typing, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/close", s.MakeHTTPHandleFunc(se.Close, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/export", s.MakeHTTPHandleFunc(se.Export, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/tags", s.MakeHTTPHandleFunc(se.SessionTags, guard))
		mux.HandleFunc(testPrefix+"/sessions/{customerId}/tags/{tagId}", s.MakeHTTPHandleFunc(se.SessionTag, guard))
		mux.HandleFunc(testPrefix+"/messages/search", s.MakeHTTPHandleFunc(se.Search, guard))
		mux.HandleFunc(testPrefix+"/tags", s.MakeHTTPHandleFunc(se.Tags, guard))

		ie := NewInboxEndpoints(inbox)
		mux.HandleFunc(testPrefix+"/templates", s.MakeHTTPHandleFunc(ie.Templates, guard))
		mux.HandleFunc(testPrefix+"/templates/{templateId}", s.MakeHTTPHandleFunc(ie.Template, guard))
		mux.HandleFunc(testPrefix+"/templates/{templateId}/apply", s.MakeHTTPHandleFunc(ie.ApplyTemplate, guard))
		mux.HandleFunc(testPrefix+"/customers/{customerId}/notes", s.MakeHTTPHandleFunc(ie.Notes, guard))
		mux.HandleFunc(testPrefix+"/customers/{customerId}/notes/{noteId}", s.MakeHTTPHandleFunc(ie.Note, guard))

		fe := NewFlowEndpoints(flows)
		mux.HandleFunc(testPrefix+"/flows", s.MakeHTTPHandleFunc(fe.Flows, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}", s.MakeHTTPHandleFunc(fe.Flow, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}/graph", s.MakeHTTPHandleFunc(fe.Graph, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}/nodes", s.MakeHTTPHandleFunc(fe.Nodes, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}/nodes/{nodeId}", s.MakeHTTPHandleFunc(fe.Node, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}/connections", s.MakeHTTPHandleFunc(fe.Connections, guard))
		mux.HandleFunc(testPrefix+"/flows/{flowId}/connections/{connectionId}", s.MakeHTTPHandleFunc(fe.Connection, guard))

		ce := NewChannelEndpoints(chat)
		channelGuard := middleware.ChannelSecret(testChannelSecret)
		mux.HandleFunc(testChannelPrefix+"/sessions", s.MakeHTTPHandleFunc(ce.Sessions, channelGuard))
		mux.HandleFunc(testChannelPrefix+"/messages", s.MakeHTTPHandleFunc(ce.Messages, channelGuard))

		mux.HandleFunc("/health", s.MakeHTTPHandleFunc(NewUtilsEndpoints("test").Health))
	})
	env.handler = server.Handler()

	login := doJSONRequest[map[string]any](t, env.handler, http.MethodPost, testPrefix+"/auth/login",
		map[string]string{"email": testAdminEmail, "password": testAdminPassword}, nil, http.StatusOK)
	env.token, _ = login["accessToken"].(string)
	if env.token == "" {
		t.Fatalf("login returned no token: %#v", login)
	}

	return env
}

// openSession registers a customer through the adapter ingress and returns
// its customer id.
func (e *testEnv) openSession(t *testing.T, ch, externalID, name string) string {
	t.Helper()
	resp := doJSONRequest[map[string]any](t, e.handler, http.MethodPost, testChannelPrefix+"/sessions",
		map[string]string{"channel": ch, "externalId": externalID, "name": name}, e.channelAuth(), http.StatusCreated)
	id, _ := resp["customerId"].(string)
	if id == "" {
		t.Fatalf("open session returned no customer id: %#v", resp)
	}
	return id
}

func (e *testEnv) customerSays(t *testing.T, ch, externalID, text string) {
	t.Helper()
	doJSONRequest[map[string]any](t, e.handler, http.MethodPost, testChannelPrefix+"/messages",
		map[string]string{"channel": ch, "externalId": externalID, "text": text}, e.channelAuth(), http.StatusCreated)
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func doJSONRequest[T any](t *testing.T, handler http.Handler, method, target string, body interface{}, headers map[string]string, expectedStatus int) T {
	t.Helper()

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		payload = bytes.NewReader(b)
	}

	all := map[string]string{}
	if body != nil {
		all["Content-Type"] = "application/json"
	}
	for k, v := range headers {
		all[k] = v
	}

	rec := doRequest(t, handler, method, target, payload, all)
	if rec.Code != expectedStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, target, expectedStatus, rec.Code, rec.Body.String())
	}

	var result T
	if expectedStatus != http.StatusNoContent {
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}

	return result
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ApiError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func sessionPath(customerID, suffix string) string {
	return fmt.Sprintf("%s/sessions/%s%s", testPrefix, customerID, suffix)
}
