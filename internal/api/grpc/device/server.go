package device

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	pb "github.com/oshokin/device-core/internal/pb/v1"
	"github.com/oshokin/device-core/internal/service/core"
)

// Service abstracts the device operations the transport layer depends on.
type Service interface {
	CallTool(ctx context.Context, payload []byte) ([]byte, error)
	Status(ctx context.Context) (core.Status, error)
	Control(ctx context.Context, action, text string) error
}

// Server implements the DeviceService gRPC API.
type Server struct {
	pb.UnimplementedDeviceServiceServer

	// service provides the device operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Call forwards one JSON-RPC tool message and returns its reply.
func (s *Server) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil || len(req.GetFields()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	payload, err := req.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "request is not valid JSON")
	}

	reply, err := s.service.CallTool(ctx, payload)
	if err != nil {
		return nil, toStatus(err)
	}

	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(reply); err != nil {
		return nil, status.Error(codes.Internal, "unable to decode tool reply")
	}

	return out, nil
}

// GetStatus returns the device state and the last known peripheral snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.service.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(toStatusFields(st))
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return out, nil
}

// Control simulates a button press or voice input.
func (s *Server) Control(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	fields := req.GetFields()
	action := fields["action"].GetStringValue()

	if action == "" {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}

	if err := s.service.Control(ctx, action, fields["text"].GetStringValue()); err != nil {
		return nil, toStatus(err)
	}

	return new(emptypb.Empty), nil
}

// toStatus maps core errors to gRPC status errors.
func toStatus(err error) error {
	switch {
	case errors.Is(err, core.ErrNoReply),
		errors.Is(err, core.ErrUnknownAction),
		errors.Is(err, core.ErrTextRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// toStatusFields converts a core.Status into structpb compatible fields.
func toStatusFields(st core.Status) map[string]any {
	fields := map[string]any{
		"state":        st.State.String(),
		"mode":         st.Mode.String(),
		"aec_mode":     st.AecMode.String(),
		"channel_open": st.ChannelOpen,
		"session_id":   st.SessionID,
		"alarms":       st.Alarms,
	}

	if st.Snapshot != nil {
		fields["snapshot"] = toSnapshotFields(st.Snapshot)
	}

	return fields
}

func toSnapshotFields(s *domain.Snapshot) map[string]any {
	fields := map[string]any{
		string(domain.DeviceLamp):   s.LampOn,
		string(domain.DevicePlug):   s.PlugOn,
		string(domain.DeviceLED):    s.LEDOn,
		string(domain.DeviceBuzzer): s.BuzzerOn,
		"car_ready":                 s.Car.Ready,
	}

	if s.HasClimate {
		fields["temperature"] = s.Temperature
		fields["humidity"] = s.Humidity
	}

	if s.HasLight {
		fields["light_intensity"] = s.LightIntensity
	}

	if !s.UpdatedAt.IsZero() {
		fields["updated_at"] = s.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return fields
}
