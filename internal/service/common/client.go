//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/device-core/internal/config"
	pb "github.com/oshokin/device-core/internal/pb/v1"
)

// Client wraps the gRPC DeviceService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the device core.
	conn *grpc.ClientConn
	// api is the DeviceService client interface.
	api pb.DeviceServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// nextID numbers JSON-RPC requests.
	nextID int
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errToolRequired is returned when a tool call has no tool name.
	errToolRequired = errors.New("tool name must be provided")
	// errActionRequired is returned when a control call has no action.
	errActionRequired = errors.New("action must be provided")
)

// Dial establishes a gRPC connection to the device core admin endpoint.
// Note: this uses insecure transport credentials; the admin endpoint is meant
// to listen on loopback or a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial device core: %w", err)
	}

	client := newClient(pb.NewDeviceServiceClient(conn), opts...)
	client.conn = conn

	return client, nil
}

func newClient(api pb.DeviceServiceClient, opts ...Option) *Client {
	client := &Client{
		api:         api,
		callTimeout: config.DefaultAdminTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// ListTools requests one tools/list page starting at cursor.
func (c *Client) ListTools(ctx context.Context, cursor string) (map[string]any, error) {
	params := map[string]any{}
	if cursor != "" {
		params["cursor"] = cursor
	}

	return c.Request(ctx, "tools/list", params)
}

// CallTool invokes a tool with arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (map[string]any, error) {
	if name == "" {
		return nil, errToolRequired
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	return c.Request(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
}

// Request sends one JSON-RPC request to the tool server and returns the reply envelope.
func (c *Client) Request(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	c.nextID++

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      c.nextID,
		"method":  method,
	}

	if params != nil {
		request["params"] = params
	}

	in, err := structpb.NewStruct(request)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.Call(callCtx, in)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	return out.AsMap(), nil
}

// Status retrieves the device status.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return out.AsMap(), nil
}

// Control sends a control action with optional text.
func (c *Client) Control(ctx context.Context, action, text string) error {
	if action == "" {
		return errActionRequired
	}

	in, err := structpb.NewStruct(map[string]any{"action": action, "text": text})
	if err != nil {
		return fmt.Errorf("encode control request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Control(callCtx, in); err != nil {
		return fmt.Errorf("control %s: %w", action, err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
