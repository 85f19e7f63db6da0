package grpcapi

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	serviceName        = "airdistance.Distance"
	distanceFullMethod = "/" + serviceName + "/Distance"
)

// DistanceRequest asks for the distance between two airport codes.
type DistanceRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DistanceReply carries the distance in miles.
type DistanceReply struct {
	Miles float64 `json:"miles"`
}

// DistanceServer defines the gRPC contract.
type DistanceServer interface {
	Distance(context.Context, *DistanceRequest) (*DistanceReply, error)
}

// RegisterDistanceServer registers service implementation.
func RegisterDistanceServer(s *grpc.Server, srv DistanceServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*DistanceServer)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Distance",
			Handler:    _Distance_Distance_Handler,
		}},
		Streams: []grpc.StreamDesc{},
	}, srv)
}

func _Distance_Distance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DistanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DistanceServer).Distance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: distanceFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DistanceServer).Distance(ctx, req.(*DistanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the Distance service over an established connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Distance(ctx context.Context, in *DistanceRequest, opts ...grpc.CallOption) (*DistanceReply, error) {
	out := new(DistanceReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.conn.Invoke(ctx, distanceFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

const codecName = "json"

// jsonCodec carries the plain Go messages above without protobuf stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
