package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []Event
	err      error
}

func (c *capturePublisher) Publish(_ context.Context, subject string, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.events = append(c.events, e)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func TestEventSigner_SignVerify(t *testing.T) {
	signer := NewEventSigner("test-secret")
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	data := []byte(`{"method":"DELETE"}`)

	sig := signer.Sign("evt-1", timestamp, "acct-1", data)
	assert.NotEmpty(t, sig)
	assert.Equal(t, sig, signer.Sign("evt-1", timestamp, "acct-1", data))
	assert.NotEqual(t, sig, signer.Sign("evt-2", timestamp, "acct-1", data))

	assert.True(t, signer.Verify("evt-1", timestamp, "acct-1", data, sig))
	assert.False(t, signer.Verify("evt-1", timestamp, "acct-2", data, sig))
	assert.False(t, NewEventSigner("other").Verify("evt-1", timestamp, "acct-1", data, sig))
}

func TestEventSigner_SignEvent(t *testing.T) {
	signer := NewEventSigner("test-secret")
	e := Event{ID: "evt-1", Timestamp: time.Now().UTC(), AccountID: "acct-1", Method: "POST", Resource: "licenses", Status: 201}

	require.NoError(t, signer.SignEvent(&e))
	assert.Len(t, e.Signature, 64)
	assert.True(t, signer.VerifyEvent(e))

	tampered := e
	tampered.Status = 500
	assert.False(t, signer.VerifyEvent(tampered))
}

func TestTarget(t *testing.T) {
	tests := []struct {
		endpoint             string
		resource, id, action string
	}{
		{"licenses", "licenses", "", ""},
		{"licenses/lic-1", "licenses", "lic-1", ""},
		{"licenses/lic-1/actions/suspend", "licenses", "lic-1", "suspend"},
		{"/accounts/acct/users/u1/actions/ban", "users", "u1", "ban"},
		{"https://api.example.com/v1/accounts/acct/machines/m1", "machines", "m1", ""},
		{"", "unknown", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			resource, id, action := target(tt.endpoint)
			assert.Equal(t, tt.resource, resource)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "licenses", subjectToken("licenses"))
	assert.Equal(t, "a_b_c", subjectToken("a.b*c"))
	assert.Equal(t, "unknown", subjectToken(""))
}

func TestRecorder_SkipsReads(t *testing.T) {
	pub := &capturePublisher{}
	r := NewRecorder(pub, nil, "", nil)

	r.ObserveCall(context.Background(), api.CallInfo{Method: http.MethodGet, Endpoint: "licenses", StatusCode: 200})
	assert.Empty(t, pub.events)
}

func TestRecorder_PublishesSignedEvent(t *testing.T) {
	pub := &capturePublisher{}
	signer := NewEventSigner("audit-secret")
	r := NewRecorder(pub, signer, "", nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	r.ObserveCall(context.Background(), api.CallInfo{
		Method:     http.MethodPost,
		Endpoint:   "licenses/lic-1/actions/suspend",
		AccountID:  "acct-1",
		RequestID:  "req-1",
		StatusCode: 200,
		Attempts:   2,
	})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "keyhawk.audit.licenses", pub.subjects[0])

	e := pub.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "acct-1", e.AccountID)
	assert.Equal(t, "licenses", e.Resource)
	assert.Equal(t, "lic-1", e.ResourceID)
	assert.Equal(t, "suspend", e.Action)
	assert.Equal(t, 2, e.Attempts)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), e.Timestamp)
	assert.True(t, signer.VerifyEvent(e))
}

func TestRecorder_RecordsFailures(t *testing.T) {
	pub := &capturePublisher{}
	r := NewRecorder(pub, nil, "ops.audit", nil)

	r.ObserveCall(context.Background(), api.CallInfo{
		Method:     http.MethodDelete,
		Endpoint:   "machines/m-1",
		StatusCode: 404,
		Err:        &api.Error{StatusCode: 404, Message: "not found"},
	})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "ops.audit.machines", pub.subjects[0])
	assert.Equal(t, 404, pub.events[0].Status)
	assert.Contains(t, pub.events[0].Error, "not found")
	assert.Empty(t, pub.events[0].Signature)
}

func TestRecorder_PublishErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	pub := &capturePublisher{err: errors.New("nats: connection closed")}
	r := NewRecorder(pub, nil, "", logging.NewWithWriter(&buf, slog.LevelWarn, "text"))

	r.ObserveCall(context.Background(), api.CallInfo{Method: http.MethodPatch, Endpoint: "users/u1", StatusCode: 200})
	assert.Contains(t, buf.String(), "failed to publish audit event")
	assert.Contains(t, buf.String(), "connection closed")
}

func TestRecorder_WiredIntoClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", api.MediaType)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"type":"products","id":"p1","attributes":{"name":"x"}}}`))
	}))
	defer server.Close()

	pub := &capturePublisher{}
	client := api.New(
		api.StaticCredentials(api.Credentials{AccountID: "acct-1", Token: "t", BaseURL: server.URL}),
		api.WithObserver(NewRecorder(pub, nil, "", nil)),
	)

	_, err := client.Do(context.Background(), api.Request{Method: http.MethodPost, Endpoint: "products", Body: map[string]any{"data": map[string]any{"type": "products"}}})
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "products", nil)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, 201, pub.events[0].Status)
	assert.Equal(t, "acct-1", pub.events[0].AccountID)
	assert.NotEmpty(t, pub.events[0].RequestID)
}

type fakeConn struct {
	msgs    []*nats.Msg
	flushed bool
	closed  bool
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error {
	f.flushed = true
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNATSPublisher(t *testing.T) {
	conn := &fakeConn{}
	p := &NATSPublisher{conn: conn}

	e := Event{ID: "evt-1", Method: "DELETE", Resource: "licenses", RequestID: "req-9"}
	require.NoError(t, p.Publish(context.Background(), "keyhawk.audit.licenses", e))

	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "keyhawk.audit.licenses", msg.Subject)
	assert.Equal(t, "evt-1", msg.Header.Get("Khawk-Event-Id"))
	assert.Equal(t, "req-9", msg.Header.Get("X-Request-ID"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, e.ID, decoded.ID)

	require.NoError(t, p.Close())
	assert.True(t, conn.flushed)
	assert.True(t, conn.closed)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	conn := &fakeConn{}
	p := &NATSPublisher{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, "s", Event{}), context.Canceled)
	assert.Empty(t, conn.msgs)
}

func TestNewNATSPublisher_ConnectError(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond
	_, err := NewNATSPublisher(cfg, nil)
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "x", Event{}))
	assert.NoError(t, p.Close())
}
