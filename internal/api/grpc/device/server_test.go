package device

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/device-core/internal/domain/device"
	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	pb "github.com/oshokin/device-core/internal/pb/v1"
	"github.com/oshokin/device-core/internal/service/core"
)

// fakeService implements Service for unit testing the transport.
type fakeService struct {
	// payload is the last tool message received.
	payload []byte
	// reply is returned by CallTool.
	reply []byte
	// err is returned by every operation when set.
	err error
	// actions records Control calls.
	actions []string
}

func (f *fakeService) CallTool(_ context.Context, payload []byte) ([]byte, error) {
	f.payload = payload

	return f.reply, f.err
}

func (f *fakeService) Status(context.Context) (core.Status, error) {
	if f.err != nil {
		return core.Status{}, f.err
	}

	return core.Status{
		State:       device.StateListening,
		Mode:        device.ModeRealtime,
		AecMode:     device.AecOnServer,
		ChannelOpen: true,
		SessionID:   "session-1",
		Alarms:      2,
		Snapshot:    &domain.Snapshot{LampOn: true, HasLight: true, LightIntensity: 900},
	}, nil
}

func (f *fakeService) Control(_ context.Context, action, text string) error {
	f.actions = append(f.actions, action+":"+text)

	return f.err
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	return s
}

// TestServer_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	_, err := s.Call(t.Context(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Control(t.Context(), mustStruct(t, map[string]any{"text": "hi"}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestServer_ErrorMapping maps core errors to gRPC codes.
func TestServer_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "unknown action", err: core.ErrUnknownAction, code: codes.InvalidArgument},
		{name: "no reply", err: core.ErrNoReply, code: codes.InvalidArgument},
		{name: "deadline", err: context.DeadlineExceeded, code: codes.DeadlineExceeded},
		{name: "other", err: core.ErrRebootDisabled, code: codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.code, status.Code(toStatus(tt.err)))
		})
	}
}

// TestServer_Roundtrip exercises every method through a bufconn client.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	svc := &fakeService{reply: []byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`)}

	lis := bufconn.Listen(1 << 16)
	srv := grpc.NewServer()
	pb.RegisterDeviceServiceServer(srv, NewServer(svc))

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	client := pb.NewDeviceServiceClient(conn)

	reply, err := client.Call(t.Context(), mustStruct(t, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	}))
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, string(svc.payload))
	require.Equal(t, float64(1), reply.GetFields()["id"].GetNumberValue())

	st, err := client.GetStatus(t.Context(), new(emptypb.Empty))
	require.NoError(t, err)

	fields := st.AsMap()
	require.Equal(t, "listening", fields["state"])
	require.Equal(t, "realtime", fields["mode"])
	require.Equal(t, true, fields["channel_open"])
	require.Equal(t, float64(2), fields["alarms"])

	snapshot, ok := fields["snapshot"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, snapshot["lamp"])
	require.Equal(t, float64(900), snapshot["light_intensity"])
	require.NotContains(t, snapshot, "temperature")

	_, err = client.Control(t.Context(), mustStruct(t, map[string]any{"action": "send_text", "text": "hello"}))
	require.NoError(t, err)
	require.Equal(t, []string{"send_text:hello"}, svc.actions)
}
