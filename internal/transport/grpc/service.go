package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Requests and responses
// are google.protobuf.Struct values, so any gRPC client can call it without
// generated stubs.
const ServiceName = "imclient.v1.ChatService"

// ChatServiceServer is the server side of ServiceName.
type ChatServiceServer interface {
	ListChats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenameChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleStar(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetMute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPublic(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCommitters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditWhitelist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InviteMembers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExitChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPermissions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeliverMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeliverChat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReportPresence(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(ChatServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ChatServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).StreamEvents(in, stream)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListChats", ChatServiceServer.ListChats),
		unaryHandler("GetChat", ChatServiceServer.GetChat),
		unaryHandler("OpenChat", ChatServiceServer.OpenChat),
		unaryHandler("CreateChat", ChatServiceServer.CreateChat),
		unaryHandler("SubmitChat", ChatServiceServer.SubmitChat),
		unaryHandler("RenameChat", ChatServiceServer.RenameChat),
		unaryHandler("ToggleStar", ChatServiceServer.ToggleStar),
		unaryHandler("SetMute", ChatServiceServer.SetMute),
		unaryHandler("SetPublic", ChatServiceServer.SetPublic),
		unaryHandler("SetCommitters", ChatServiceServer.SetCommitters),
		unaryHandler("EditWhitelist", ChatServiceServer.EditWhitelist),
		unaryHandler("InviteMembers", ChatServiceServer.InviteMembers),
		unaryHandler("ExitChat", ChatServiceServer.ExitChat),
		unaryHandler("GetPermissions", ChatServiceServer.GetPermissions),
		unaryHandler("GetMessages", ChatServiceServer.GetMessages),
		unaryHandler("SendMessage", ChatServiceServer.SendMessage),
		unaryHandler("MarkRead", ChatServiceServer.MarkRead),
		unaryHandler("DeliverMessages", ChatServiceServer.DeliverMessages),
		unaryHandler("DeliverChat", ChatServiceServer.DeliverChat),
		unaryHandler("ReportPresence", ChatServiceServer.ReportPresence),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "imclient/v1/chat.proto",
}

// Client calls ServiceName over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method with req as the request body.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// StreamEvents opens the event stream. Each received Struct is one event.
func (c *Client) StreamEvents(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
