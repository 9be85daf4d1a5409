package ledgerapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "melonmail.ledger.LedgerService"

const (
	MethodChallenge      = "/" + ServiceName + "/Challenge"
	MethodLogin          = "/" + ServiceName + "/Login"
	MethodRegister       = "/" + ServiceName + "/Register"
	MethodResolveAddress = "/" + ServiceName + "/ResolveAddress"
	MethodGetThread      = "/" + ServiceName + "/GetThread"
	MethodGetMails       = "/" + ServiceName + "/GetMails"
	MethodSendMail       = "/" + ServiceName + "/SendMail"
	MethodLatestBlock    = "/" + ServiceName + "/LatestBlock"
	MethodListenForMails = "/" + ServiceName + "/ListenForMails"
)

// PublicMethods can be called without an access token.
var PublicMethods = map[string]bool{
	MethodChallenge:      true,
	MethodLogin:          true,
	MethodRegister:       true,
	MethodResolveAddress: true,
	MethodLatestBlock:    true,
}

// LedgerServiceServer is implemented by the ledger daemon.
type LedgerServiceServer interface {
	Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	ResolveAddress(context.Context, *ResolveAddressRequest) (*ResolveAddressResponse, error)
	GetThread(context.Context, *GetThreadRequest) (*GetThreadResponse, error)
	GetMails(context.Context, *GetMailsRequest) (*GetMailsResponse, error)
	SendMail(context.Context, *SendMailRequest) (*SendMailResponse, error)
	LatestBlock(context.Context, *LatestBlockRequest) (*LatestBlockResponse, error)
	ListenForMails(*ListenRequest, LedgerService_ListenForMailsServer) error
}

type LedgerService_ListenForMailsServer interface {
	Send(*ListenEvent) error
	grpc.ServerStream
}

type listenForMailsServer struct {
	grpc.ServerStream
}

func (x *listenForMailsServer) Send(m *ListenEvent) error {
	return x.ServerStream.SendMsg(m)
}

func unary[Req any, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listenForMailsHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListenRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LedgerServiceServer).ListenForMails(in, &listenForMailsServer{stream})
}

var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Challenge", Handler: unary(MethodChallenge, LedgerServiceServer.Challenge)},
		{MethodName: "Login", Handler: unary(MethodLogin, LedgerServiceServer.Login)},
		{MethodName: "Register", Handler: unary(MethodRegister, LedgerServiceServer.Register)},
		{MethodName: "ResolveAddress", Handler: unary(MethodResolveAddress, LedgerServiceServer.ResolveAddress)},
		{MethodName: "GetThread", Handler: unary(MethodGetThread, LedgerServiceServer.GetThread)},
		{MethodName: "GetMails", Handler: unary(MethodGetMails, LedgerServiceServer.GetMails)},
		{MethodName: "SendMail", Handler: unary(MethodSendMail, LedgerServiceServer.SendMail)},
		{MethodName: "LatestBlock", Handler: unary(MethodLatestBlock, LedgerServiceServer.LatestBlock)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListenForMails", Handler: listenForMailsHandler, ServerStreams: true},
	},
	Metadata: "ledgerapi",
}

// RegisterLedgerServiceServer attaches srv to s.
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}
