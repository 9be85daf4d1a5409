package ledgerapi

import (
	"context"

	"google.golang.org/grpc"
)

// LedgerServiceClient is the client stub of the ledger service.
type LedgerServiceClient interface {
	Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	ResolveAddress(ctx context.Context, in *ResolveAddressRequest, opts ...grpc.CallOption) (*ResolveAddressResponse, error)
	GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*GetThreadResponse, error)
	GetMails(ctx context.Context, in *GetMailsRequest, opts ...grpc.CallOption) (*GetMailsResponse, error)
	SendMail(ctx context.Context, in *SendMailRequest, opts ...grpc.CallOption) (*SendMailResponse, error)
	LatestBlock(ctx context.Context, in *LatestBlockRequest, opts ...grpc.CallOption) (*LatestBlockResponse, error)
	ListenForMails(ctx context.Context, in *ListenRequest, opts ...grpc.CallOption) (LedgerService_ListenForMailsClient, error)
}

type LedgerService_ListenForMailsClient interface {
	Recv() (*ListenEvent, error)
	grpc.ClientStream
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient wraps cc. Every call is sent with the JSON codec.
func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error) {
	return invoke[ChallengeResponse](ctx, c.cc, MethodChallenge, in, opts)
}

func (c *ledgerServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *ledgerServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *ledgerServiceClient) ResolveAddress(ctx context.Context, in *ResolveAddressRequest, opts ...grpc.CallOption) (*ResolveAddressResponse, error) {
	return invoke[ResolveAddressResponse](ctx, c.cc, MethodResolveAddress, in, opts)
}

func (c *ledgerServiceClient) GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*GetThreadResponse, error) {
	return invoke[GetThreadResponse](ctx, c.cc, MethodGetThread, in, opts)
}

func (c *ledgerServiceClient) GetMails(ctx context.Context, in *GetMailsRequest, opts ...grpc.CallOption) (*GetMailsResponse, error) {
	return invoke[GetMailsResponse](ctx, c.cc, MethodGetMails, in, opts)
}

func (c *ledgerServiceClient) SendMail(ctx context.Context, in *SendMailRequest, opts ...grpc.CallOption) (*SendMailResponse, error) {
	return invoke[SendMailResponse](ctx, c.cc, MethodSendMail, in, opts)
}

func (c *ledgerServiceClient) LatestBlock(ctx context.Context, in *LatestBlockRequest, opts ...grpc.CallOption) (*LatestBlockResponse, error) {
	return invoke[LatestBlockResponse](ctx, c.cc, MethodLatestBlock, in, opts)
}

func (c *ledgerServiceClient) ListenForMails(ctx context.Context, in *ListenRequest, opts ...grpc.CallOption) (LedgerService_ListenForMailsClient, error) {
	stream, err := c.cc.NewStream(ctx, &LedgerService_ServiceDesc.Streams[0], MethodListenForMails, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &listenForMailsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type listenForMailsClient struct {
	grpc.ClientStream
}

func (x *listenForMailsClient) Recv() (*ListenEvent, error) {
	m := new(ListenEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
