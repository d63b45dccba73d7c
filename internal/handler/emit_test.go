package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stablehq/stablecast/internal/events"
	"github.com/stablehq/stablecast/internal/realtime"
)

func newEmitHandler() (*EmitHandler, *realtime.Broker) {
	broker := realtime.New(realtime.Config{})
	return NewEmitHandler(events.NewPublisher(broker)), broker
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestEmit_ModuleChannel(t *testing.T) {
	h, broker := newEmitHandler()

	w := postJSON(t, h.Emit, `{"module":"horses","action":"created","payload":{"name":"Star"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var resp emitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Channel != "horses" || resp.Event != "horses:created" {
		t.Errorf("response = %+v, want horses:created on horses", resp)
	}

	if got := broker.History("horses", 10); len(got) != 1 {
		t.Errorf("history length = %d, want 1", len(got))
	}
}

func TestEmit_OwnerChannel(t *testing.T) {
	h, broker := newEmitHandler()

	w := postJSON(t, h.Emit, `{"module":"documents","action":"uploaded","owner_id":8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if got := broker.History("user:8", 10); len(got) != 1 {
		t.Errorf("user:8 history length = %d, want 1", len(got))
	}
}

func TestEmit_Validation(t *testing.T) {
	h, _ := newEmitHandler()

	for name, body := range map[string]string{
		"missing module": `{"action":"created"}`,
		"missing action": `{"module":"horses"}`,
		"invalid json":   `{`,
	} {
		if w := postJSON(t, h.Emit, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestEmit_PayloadTooLarge(t *testing.T) {
	h, _ := newEmitHandler()

	big := bytes.Repeat([]byte("x"), maxPayloadSize+1)
	body := `{"module":"horses","action":"created","payload":"` + string(big) + `"}`
	if w := postJSON(t, h.Emit, body); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestEmitGlobal(t *testing.T) {
	h, broker := newEmitHandler()

	w := postJSON(t, h.EmitGlobal, `{"event":"maintenance","payload":{"until":"18:00"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if got := broker.History(realtime.GlobalChannel, 10); len(got) != 1 {
		t.Errorf("global history length = %d, want 1", len(got))
	}

	if w := postJSON(t, h.EmitGlobal, `{"payload":{}}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty event status = %d, want 400", w.Code)
	}
}
