package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls vaxbook.v1.SchedulingService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RegisterPerson(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RegisterPerson", req, opts...)
}

func (c *Client) AddVaccineLot(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AddVaccineLot", req, opts...)
}

func (c *Client) BookAppointment(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "BookAppointment", req, opts...)
}

func (c *Client) FindAndBook(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "FindAndBook", req, opts...)
}

func (c *Client) CancelAppointment(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CancelAppointment", req, opts...)
}

func (c *Client) ListPersonAppointments(ctx context.Context, document string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListPersonAppointments", map[string]any{"document": document}, opts...)
}

func (c *Client) GetCenterStock(ctx context.Context, centerCode string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetCenterStock", map[string]any{"center_code": centerCode}, opts...)
}

func (c *Client) GetVaccine(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetVaccine", map[string]any{"name": name}, opts...)
}

func (c *Client) ListVaccines(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListVaccines", map[string]any{}, opts...)
}

// GetVaccineLot looks a lot up by center, vaccine and RFC 3339 reception time.
func (c *Client) GetVaccineLot(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetVaccineLot", req, opts...)
}

func (c *Client) ListVaccineLots(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListVaccineLots", map[string]any{}, opts...)
}

func (c *Client) GetStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetStats", map[string]any{}, opts...)
}
