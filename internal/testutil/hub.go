package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// FakeError makes a FakeHub handler answer with isSuccess=false.
type FakeError struct {
	Code    int
	Message string
}

func (e *FakeError) Error() string { return e.Message }

// FakeHandler answers one RPC method. A *FakeError result becomes a remote
// failure; any other error fails the test.
type FakeHandler func(params json.RawMessage) (interface{}, error)

// FakeCall is one request received by a FakeHub.
type FakeCall struct {
	Method string
	Params json.RawMessage
}

// FakeHub is an in-process websocket RPC server speaking the hub protocol.
type FakeHub struct {
	URL      string
	Password string // when set, auth.login must present it

	// EventBeforeReply makes the hub send an unsolicited event frame ahead
	// of every response.
	EventBeforeReply bool

	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]FakeHandler
	calls    []FakeCall
	conns    int
}

type fakeRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type fakeResponse struct {
	ID        uint64      `json:"id"`
	IsSuccess bool        `json:"isSuccess"`
	Code      int         `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewFakeHub starts a fake hub that is shut down when the test ends.
func NewFakeHub(t *testing.T) *FakeHub {
	t.Helper()
	h := &FakeHub{
		t:        t,
		handlers: make(map[string]FakeHandler),
	}
	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	h.URL = "ws" + strings.TrimPrefix(h.server.URL, "http")
	t.Cleanup(h.server.Close)
	return h
}

// Handle registers a handler for method.
func (h *FakeHub) Handle(method string, handler FakeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[method] = handler
}

// Calls returns the requests received so far, login included.
func (h *FakeHub) Calls() []FakeCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]FakeCall(nil), h.calls...)
}

// CallsTo returns the requests received for method.
func (h *FakeHub) CallsTo(method string) []FakeCall {
	var out []FakeCall
	for _, call := range h.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Connections returns the number of websocket sessions accepted.
func (h *FakeHub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns
}

func (h *FakeHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.t.Errorf("fake hub accept: %v", err)
		return
	}
	defer conn.CloseNow()

	h.mu.Lock()
	h.conns++
	h.mu.Unlock()

	ctx := r.Context()
	for {
		var req fakeRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}

		h.mu.Lock()
		h.calls = append(h.calls, FakeCall{Method: req.Method, Params: req.Params})
		handler := h.handlers[req.Method]
		h.mu.Unlock()

		if h.EventBeforeReply {
			_ = wsjson.Write(ctx, conn, map[string]interface{}{"event": "device.changed", "data": map[string]int{"id": 1}})
		}
		if err := wsjson.Write(ctx, conn, h.answer(req, handler)); err != nil {
			return
		}
	}
}

func (h *FakeHub) answer(req fakeRequest, handler FakeHandler) fakeResponse {
	resp := fakeResponse{ID: req.ID, IsSuccess: true}

	if req.Method == "auth.login" && handler == nil {
		var creds struct {
			Password string `json:"password"`
		}
		_ = json.Unmarshal(req.Params, &creds)
		if h.Password != "" && creds.Password != h.Password {
			resp.IsSuccess = false
			resp.Code = 401
			resp.Message = "invalid credentials"
		}
		return resp
	}

	if handler == nil {
		resp.IsSuccess = false
		resp.Code = 404
		resp.Message = fmt.Sprintf("unknown method %s", req.Method)
		return resp
	}

	data, err := handler(req.Params)
	if err != nil {
		var fe *FakeError
		if !errors.As(err, &fe) {
			h.t.Errorf("fake hub handler %s: %v", req.Method, err)
			fe = &FakeError{Code: 500, Message: err.Error()}
		}
		resp.IsSuccess = false
		resp.Code = fe.Code
		resp.Message = fe.Message
		return resp
	}
	resp.Data = data
	return resp
}

// ScenarioStore backs the scenario.* methods of a FakeHub with an
// in-memory map keyed by the JSON text of each scenario's index.
type ScenarioStore struct {
	mu        sync.Mutex
	scenarios map[string]json.RawMessage
	// FailUpdate makes scenario.update fail for the listed index keys.
	FailUpdate map[string]bool
}

// ServeScenarios registers scenario.list, scenario.get and scenario.update
// on h, seeded with the given scenario documents.
func (h *FakeHub) ServeScenarios(docs ...string) *ScenarioStore {
	h.t.Helper()
	store := &ScenarioStore{
		scenarios:  make(map[string]json.RawMessage),
		FailUpdate: make(map[string]bool),
	}
	for _, doc := range docs {
		if err := store.Put(json.RawMessage(doc)); err != nil {
			h.t.Fatalf("seed scenario: %v", err)
		}
	}

	h.Handle("scenario.list", func(json.RawMessage) (interface{}, error) {
		return store.List(), nil
	})
	h.Handle("scenario.get", func(params json.RawMessage) (interface{}, error) {
		var req struct {
			Index json.RawMessage `json:"index"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, &FakeError{Code: 400, Message: err.Error()}
		}
		doc, ok := store.Get(string(req.Index))
		if !ok {
			return nil, &FakeError{Code: 404, Message: "scenario not found"}
		}
		return doc, nil
	})
	h.Handle("scenario.update", func(params json.RawMessage) (interface{}, error) {
		var req struct {
			Scenario json.RawMessage `json:"scenario"`
		}
		if err := json.Unmarshal(params, &req); err != nil || len(req.Scenario) == 0 {
			return nil, &FakeError{Code: 400, Message: "scenario is required"}
		}
		key, err := indexKey(req.Scenario)
		if err != nil {
			return nil, &FakeError{Code: 400, Message: err.Error()}
		}
		if store.failsUpdate(key) {
			return nil, &FakeError{Code: 500, Message: "update rejected"}
		}
		if err := store.Put(req.Scenario); err != nil {
			return nil, &FakeError{Code: 400, Message: err.Error()}
		}
		return map[string]bool{"updated": true}, nil
	})
	return store
}

// Put stores or replaces a scenario document.
func (s *ScenarioStore) Put(doc json.RawMessage) error {
	key, err := indexKey(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[key] = append(json.RawMessage(nil), doc...)
	return nil
}

// Get returns the stored document for an index key such as "3".
func (s *ScenarioStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.scenarios[key]
	return doc, ok
}

// List returns all documents ordered by index key.
func (s *ScenarioStore) List() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.scenarios))
	for key := range s.scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]json.RawMessage, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.scenarios[key])
	}
	return out
}

func (s *ScenarioStore) failsUpdate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FailUpdate[key]
}

func indexKey(doc json.RawMessage) (string, error) {
	var head struct {
		Index json.RawMessage `json:"index"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return "", err
	}
	if len(head.Index) == 0 {
		return "", fmt.Errorf("scenario has no index")
	}
	return string(head.Index), nil
}
