package hermes

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

type fakeConn struct {
	published map[string][]byte
	handlers  map[string]nats.MsgHandler
	err       error
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{published: map[string][]byte{}, handlers: map[string]nats.MsgHandler{}}
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published[subject] = data
	return nil
}

func (f *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.handlers[subject] = cb
	return nil, nil
}

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) deliver(subject string, data []byte) {
	f.handlers[subject](&nats.Msg{Subject: subject, Data: data})
}

func testClient(fc *fakeConn) *Client {
	c := newClient(fc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestPublishAnalysisCompleted(t *testing.T) {
	fc := newFakeConn()
	c := testClient(fc)

	err := c.PublishAnalysisCompleted(AnalysisCompleted{ExtractID: "abc", ChatName: "Obra", Persisted: true})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	data, ok := fc.published[SubjectAnalysisCompleted]
	if !ok {
		t.Fatalf("nothing published on %s", SubjectAnalysisCompleted)
	}
	var got AnalysisCompleted
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if got.ExtractID != "abc" || got.ChatName != "Obra" {
		t.Errorf("unexpected payload %+v", got)
	}
	if !got.CompletedAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("expected stamped completion time, got %v", got.CompletedAt)
	}
}

func TestPublishAnalysisCompleted_Errors(t *testing.T) {
	fc := newFakeConn()
	c := testClient(fc)

	if err := c.PublishAnalysisCompleted(AnalysisCompleted{}); err == nil {
		t.Error("expected error without extract id")
	}
	if len(fc.published) != 0 {
		t.Error("invalid event must not be published")
	}

	fc.err = errors.New("connection closed")
	if err := c.PublishAnalysisCompleted(AnalysisCompleted{ExtractID: "abc"}); err == nil {
		t.Error("expected publish error to surface")
	}
}

func TestSubscribeArchiveSubmitted(t *testing.T) {
	fc := newFakeConn()
	c := testClient(fc)

	var got []ArchiveSubmitted
	if err := c.SubscribeArchiveSubmitted(func(evt ArchiveSubmitted) { got = append(got, evt) }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	fc.deliver(SubjectArchiveSubmitted, []byte(`{"path": "/inbox/obra.zip", "name": "Obra.zip"}`))
	fc.deliver(SubjectArchiveSubmitted, []byte(`garbage`))
	fc.deliver(SubjectArchiveSubmitted, []byte(`{"name": "no path"}`))

	if len(got) != 1 {
		t.Fatalf("expected 1 delivered submission, got %d", len(got))
	}
	if got[0].Path != "/inbox/obra.zip" || got[0].Name != "Obra.zip" {
		t.Errorf("unexpected submission %+v", got[0])
	}

	c.Close()
	if !fc.closed {
		t.Error("expected connection closed")
	}
}
