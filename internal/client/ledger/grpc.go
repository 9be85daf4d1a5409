package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const resolveTimeout = 12 * time.Second

// GRPCClient talks to the ledger daemon. After Login it attaches the access
// token to every call and logs in again with the held keypair when the
// token has expired.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      ledgerapi.LedgerServiceClient
	logger      logging.Logger

	mu          sync.RWMutex
	accessToken string
	keys        *cryptox.Keypair
	account     Account
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if ledgerapi.PublicMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	if rerr := s.relogin(ctx); rerr != nil {
		return err
	}

	return invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.token()), desc, cc, method, opts...)
}

// NewGRPCClient dials the ledger daemon at endpointURL.
func NewGRPCClient(endpointURL string, logger logging.Logger) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, logger: logger.With("module", "ledger")}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

// InitGRPCClient creates the connection and installs the token
// interceptors. The connection is established lazily.
func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = ledgerapi.NewLedgerServiceClient(conn)
	return nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.keys = nil
	s.account = Account{}
	return nil
}

func (s *GRPCClient) Close() error {
	_ = s.Logout(context.Background())
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Register creates an account for keys under mailAddress.
func (s *GRPCClient) Register(ctx context.Context, mailAddress string, keys *cryptox.Keypair) (Account, error) {
	req := &ledgerapi.RegisterRequest{
		MailAddress: mailAddress,
		Address:     keys.Address(),
		PublicKey:   cryptox.EncodeKey(keys.PublicKey),
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return Account{}, s.mapError(err)
	}

	return Account{
		Address:       req.Address,
		PublicKey:     req.PublicKey,
		MailAddress:   mailAddress,
		StartingBlock: resp.StartingBlock,
	}, nil
}

// Login proves possession of keys with a sealed challenge and stores the
// issued access token.
func (s *GRPCClient) Login(ctx context.Context, keys *cryptox.Keypair) (Account, error) {
	address := keys.Address()

	ch, err := s.client.Challenge(ctx, &ledgerapi.ChallengeRequest{Address: address})
	if err != nil {
		return Account{}, s.mapError(err)
	}

	nonce, err := cryptox.Decrypt(keys, ch.Sealed)
	if err != nil {
		return Account{}, fmt.Errorf("open challenge: %w", err)
	}
	defer common.WipeByteArray(nonce)

	resp, err := s.client.Login(ctx, &ledgerapi.LoginRequest{
		Address:     address,
		ChallengeID: ch.ChallengeID,
		Answer:      base64.StdEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return Account{}, s.mapError(err)
	}

	acc := Account{
		Address:       address,
		PublicKey:     cryptox.EncodeKey(keys.PublicKey),
		MailAddress:   resp.MailAddress,
		StartingBlock: resp.StartingBlock,
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.keys = keys
	s.account = acc
	s.mu.Unlock()

	return acc, nil
}

func (s *GRPCClient) relogin(ctx context.Context) error {
	s.mu.RLock()
	keys := s.keys
	s.mu.RUnlock()

	if keys == nil {
		return common.ErrNotLoggedIn
	}

	s.logger.Info(ctx, "access token expired, logging in again")
	_, err := s.Login(ctx, keys)
	return err
}

func (s *GRPCClient) GetAccount(ctx context.Context) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return Account{}, common.ErrNotLoggedIn
	}
	return s.account, nil
}

func (s *GRPCClient) ResolveAddress(ctx context.Context, mailAddress string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	resp, err := s.client.ResolveAddress(ctx, &ledgerapi.ResolveAddressRequest{MailAddress: mailAddress})
	if err != nil {
		return Account{}, s.mapError(err)
	}
	return Account{Address: resp.Address, PublicKey: resp.PublicKey, MailAddress: resp.MailAddress}, nil
}

func (s *GRPCClient) GetThread(ctx context.Context, threadID string, afterBlock int64) (models.MailEvent, error) {
	resp, err := s.client.GetThread(ctx, &ledgerapi.GetThreadRequest{ThreadID: threadID, AfterBlock: afterBlock})
	if err != nil {
		return models.MailEvent{}, s.mapError(err)
	}
	return eventFromWire(resp.Event), nil
}

func (s *GRPCClient) GetMails(ctx context.Context, folder models.Folder, fetchToBlock *int64, batchSize, startingBlock int64) ([]models.MailEvent, int64, error) {
	req := &ledgerapi.GetMailsRequest{
		Folder:        folder.String(),
		FetchToBlock:  fetchToBlock,
		BatchSize:     batchSize,
		StartingBlock: startingBlock,
	}

	resp, err := s.client.GetMails(ctx, req)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return eventsFromWire(resp.Events), resp.FromBlock, nil
}

func (s *GRPCClient) SendMail(ctx context.Context, toAddress, mailHash, threadHash, threadID string) (models.MailEvent, error) {
	req := &ledgerapi.SendMailRequest{
		ToAddress:  toAddress,
		MailHash:   mailHash,
		ThreadHash: threadHash,
		ThreadID:   threadID,
	}

	resp, err := s.client.SendMail(ctx, req)
	if err != nil {
		return models.MailEvent{}, s.mapError(err)
	}

	s.mu.RLock()
	from := s.account.Address
	s.mu.RUnlock()

	return models.MailEvent{
		TransactionHash: resp.TransactionHash,
		BlockNumber:     resp.BlockNumber,
		Args: models.MailEventArgs{
			MailHash:    mailHash,
			ThreadHash:  threadHash,
			ThreadID:    threadID,
			FromAddress: from,
			ToAddress:   toAddress,
		},
	}, nil
}

// ListenForMails opens the server stream and feeds h from a goroutine.
// stop cancels the stream and waits for the goroutine to finish.
func (s *GRPCClient) ListenForMails(ctx context.Context, h Handler) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.client.ListenForMails(ctx, &ledgerapi.ListenRequest{})
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					s.logger.Error(ctx, "mail stream closed", "error", s.mapError(err))
				}
				return
			}

			folder, err := models.ParseFolder(msg.Folder)
			if err != nil {
				s.logger.Warn(ctx, "skipping live event", "error", err)
				continue
			}
			h(ctx, models.TaggedEvent{Event: eventFromWire(msg.Event), Folder: folder})
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return stop, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		switch st.Message() {
		case common.ErrThreadNotFound.Error():
			return common.ErrThreadNotFound
		case common.ErrAccountNotFound.Error():
			return common.ErrAccountNotFound
		}
		return common.ErrNotFound
	case codes.AlreadyExists:
		return common.ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidRequest, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
