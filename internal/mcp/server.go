package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/oshokin/device-core/internal/logger"
)

// ProtocolVersion is announced in initialize replies.
const ProtocolVersion = "2024-11-05"

// Reply receives one encoded JSON-RPC reply.
type Reply func(ctx context.Context, payload []byte)

// ServerInfo identifies the device in initialize replies.
type ServerInfo struct {
	// Name is the board name.
	Name string
	// Version is the firmware version.
	Version string
}

// Capabilities are the client capabilities the device cares about.
type Capabilities struct {
	// VisionURL is the image explanation endpoint offered by the agent.
	VisionURL string
	// VisionToken authenticates VisionURL.
	VisionToken string
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithListBudget sets the tools/list page budget in bytes.
func WithListBudget(budget int) ServerOption {
	return func(s *Server) {
		if budget > 0 {
			s.listBudget = budget
		}
	}
}

// WithDefaultStackSize sets the worker budget used when tools/call omits stackSize.
func WithDefaultStackSize(size int) ServerOption {
	return func(s *Server) {
		if size > 0 {
			s.defaultStack = size
		}
	}
}

// WithCapabilitiesHandler registers a callback for client capabilities sent in initialize.
func WithCapabilitiesHandler(fn func(ctx context.Context, caps Capabilities)) ServerOption {
	return func(s *Server) {
		s.onCapabilities = fn
	}
}

// Server answers JSON-RPC 2.0 tool requests.
type Server struct {
	// registry is the tool catalog.
	registry *Registry
	// spawner runs tools/call handlers.
	spawner Spawner
	// info is reported by initialize.
	info ServerInfo
	// listBudget bounds tools/list pages.
	listBudget int
	// defaultStack is the budget of calls without stackSize.
	defaultStack int
	// onCapabilities receives initialize capabilities.
	onCapabilities func(ctx context.Context, caps Capabilities)
}

// NewServer builds a server over registry.
func NewServer(registry *Registry, spawner Spawner, info ServerInfo, opts ...ServerOption) *Server {
	s := &Server{
		registry:     registry,
		spawner:      spawner,
		info:         info,
		listBudget:   DefaultListBudget,
		defaultStack: DefaultStackSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the catalog served.
func (s *Server) Registry() *Registry {
	return s.registry
}

// request is the incoming JSON-RPC envelope.
type request struct {
	// JSONRPC must be "2.0".
	JSONRPC string `json:"jsonrpc"`
	// Method is the requested method.
	Method string `json:"method"`
	// ID is the correlation id, a number.
	ID json.RawMessage `json:"id"`
	// Params is an optional object.
	Params json.RawMessage `json:"params"`
}

// response is the outgoing JSON-RPC envelope.
type response struct {
	// JSONRPC is always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID echoes the request id.
	ID int64 `json:"id"`
	// Result is set on success.
	Result any `json:"result,omitempty"`
	// Error is set on failure.
	Error *responseError `json:"error,omitempty"`
}

// responseError carries the failure text.
type responseError struct {
	// Message is the human readable failure.
	Message string `json:"message"`
}

// initializeResult is the initialize reply.
type initializeResult struct {
	// ProtocolVersion is the supported protocol revision.
	ProtocolVersion string `json:"protocolVersion"`
	// Capabilities advertises the tools capability.
	Capabilities map[string]any `json:"capabilities"`
	// ServerInfo names the device.
	ServerInfo mcpgo.Implementation `json:"serverInfo"`
}

// callResult is the tools/call reply.
type callResult struct {
	// Content holds a single text item.
	Content []mcpgo.Content `json:"content"`
	// IsError is always false; failures use error replies.
	IsError bool `json:"isError"`
}

// Handle parses one message and arranges exactly one reply for it.
// It returns false when the message gets no reply: notifications and
// malformed envelopes that carry no usable id.
func (s *Server) Handle(ctx context.Context, payload []byte, reply Reply) bool {
	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.ErrorKV(ctx, "failed to parse tool message", "error", err)

		return false
	}

	if req.JSONRPC != "2.0" {
		logger.ErrorKV(ctx, "invalid JSON-RPC version", "jsonrpc", req.JSONRPC)

		return false
	}

	if req.Method == "" {
		logger.Error(ctx, "tool message without method")

		return false
	}

	if strings.HasPrefix(req.Method, "notifications") {
		return false
	}

	params := bytes.TrimSpace(req.Params)
	if isNull(params) {
		params = nil
	}

	if params != nil && params[0] != '{' {
		logger.ErrorKV(ctx, "tool message params is not an object", "method", req.Method)

		return false
	}

	id, ok := decodeID(req.ID)
	if !ok {
		logger.ErrorKV(ctx, "tool message id is not a number", "method", req.Method)

		return false
	}

	ctx = logger.WithFields(ctx, "rpc_id", id, "method", req.Method)
	reply = once(reply)

	switch req.Method {
	case "initialize":
		s.initialize(ctx, id, params, reply)
	case "tools/list":
		s.list(ctx, id, params, reply)
	case "tools/call":
		s.call(ctx, id, params, reply)
	default:
		logger.Warn(ctx, "method not implemented")
		s.replyError(ctx, reply, id, replyErrorf(ErrMethodNotFound, "Method not implemented: %s", req.Method))
	}

	return true
}

func (s *Server) initialize(ctx context.Context, id int64, params json.RawMessage, reply Reply) {
	if params != nil && s.onCapabilities != nil {
		var p struct {
			Capabilities struct {
				Vision *struct {
					URL   string `json:"url"`
					Token string `json:"token"`
				} `json:"vision"`
			} `json:"capabilities"`
		}

		if err := json.Unmarshal(params, &p); err != nil {
			logger.WarnKV(ctx, "ignoring malformed client capabilities", "error", err)
		} else if p.Capabilities.Vision != nil {
			s.onCapabilities(ctx, Capabilities{
				VisionURL:   p.Capabilities.Vision.URL,
				VisionToken: p.Capabilities.Vision.Token,
			})
		}
	}

	s.replyResult(ctx, reply, id, initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo: mcpgo.Implementation{
			Name:    s.info.Name,
			Version: s.info.Version,
		},
	})
}

func (s *Server) list(ctx context.Context, id int64, params json.RawMessage, reply Reply) {
	var cursor string

	if params != nil {
		var p struct {
			Cursor any `json:"cursor"`
		}

		if err := json.Unmarshal(params, &p); err == nil {
			cursor, _ = p.Cursor.(string)
		}
	}

	page, err := s.registry.List(cursor, s.listBudget)
	if err != nil {
		logger.ErrorKV(ctx, "failed to list tools", "cursor", cursor, "error", err)
		s.replyError(ctx, reply, id, err)

		return
	}

	s.replyResult(ctx, reply, id, page.Result())
}

func (s *Server) call(ctx context.Context, id int64, params json.RawMessage, reply Reply) {
	if params == nil {
		s.replyError(ctx, reply, id, replyErrorf(ErrInvalidRequest, "Missing params"))

		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(params, &fields); err != nil {
		s.replyError(ctx, reply, id, replyErrorf(ErrInvalidRequest, "Missing params"))

		return
	}

	var name string
	if raw, ok := fields["name"]; !ok || json.Unmarshal(raw, &name) != nil || !isString(raw) {
		s.replyError(ctx, reply, id, replyErrorf(ErrInvalidRequest, "Missing name"))

		return
	}

	var arguments map[string]json.RawMessage
	if raw, ok := fields["arguments"]; ok && !isNull(raw) {
		if !isObject(raw) || json.Unmarshal(raw, &arguments) != nil {
			s.replyError(ctx, reply, id, replyErrorf(ErrInvalidRequest, "Invalid arguments"))

			return
		}
	}

	budget := s.defaultStack

	if raw, ok := fields["stackSize"]; ok && !isNull(raw) {
		v, ok := decodeValue(raw, KindInt)
		if !ok || v.AsInt() <= 0 {
			s.replyError(ctx, reply, id, replyErrorf(ErrInvalidRequest, "Invalid stackSize"))

			return
		}

		budget = v.AsInt()
	}

	inv, err := s.registry.Bind(name, arguments)
	if err != nil {
		logger.WarnKV(ctx, "tool call rejected", "tool", name, "error", err)
		s.replyError(ctx, reply, id, err)

		return
	}

	s.spawner.Spawn(ctx, budget, &callJob{
		server: s,
		id:     id,
		inv:    inv,
		reply:  reply,
	})
}

// callJob runs one bound invocation on a worker.
type callJob struct {
	// server encodes the reply.
	server *Server
	// id is the correlation id.
	id int64
	// inv is the bound call.
	inv *Invocation
	// reply receives the single reply.
	reply Reply
}

// Run implements Job.
func (j *callJob) Run(ctx context.Context) {
	ctx = logger.WithKV(ctx, "tool", j.inv.Tool())

	result, err := j.inv.Run(ctx)
	if err != nil {
		logger.WarnKV(ctx, "tool call failed", "error", err)
		j.server.replyError(ctx, j.reply, j.id, err)

		return
	}

	j.server.replyResult(ctx, j.reply, j.id, callResult{
		Content: []mcpgo.Content{mcpgo.NewTextContent(result.String())},
	})
}

// Reject implements Job.
func (j *callJob) Reject(err error) {
	j.server.replyError(context.Background(), j.reply, j.id, err)
}

func (s *Server) replyResult(ctx context.Context, reply Reply, id int64, result any) {
	s.send(ctx, reply, response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) replyError(ctx context.Context, reply Reply, id int64, err error) {
	msg := err.Error()

	var replyErr *ReplyError
	if errors.As(err, &replyErr) {
		msg = replyErr.Message
	}

	s.send(ctx, reply, response{JSONRPC: "2.0", ID: id, Error: &responseError{Message: msg}})
}

func (s *Server) send(ctx context.Context, reply Reply, resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.ErrorKV(ctx, "failed to encode tool reply", "error", err)

		data, _ = json.Marshal(response{ //nolint:errchkjson // Plain strings always encode.
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &responseError{Message: "Failed to encode reply"},
		})
	}

	reply(ctx, data)
}

// once guards a Reply so a request can never be answered twice.
func once(reply Reply) Reply {
	var o sync.Once

	return func(ctx context.Context, payload []byte) {
		o.Do(func() { reply(ctx, payload) })
	}
}

func decodeID(raw json.RawMessage) (int64, bool) {
	v, ok := decodeValue(raw, KindInt)
	if !ok {
		return 0, false
	}

	return int64(v.AsInt()), true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)

	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)

	return len(raw) > 0 && raw[0] == '{'
}

func isString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)

	return len(raw) > 0 && raw[0] == '"'
}
