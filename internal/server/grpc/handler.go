package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/melonmail/internal/common"
	"github.com/dmitrijs2005/melonmail/internal/ledgerapi"
	"github.com/dmitrijs2005/melonmail/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toWire(ev *models.MailEvent) ledgerapi.Event {
	return ledgerapi.Event{
		TransactionHash: ev.TransactionHash,
		BlockNumber:     ev.BlockNumber,
		MailHash:        ev.MailHash,
		ThreadHash:      ev.ThreadHash,
		ThreadID:        ev.ThreadID,
		FromAddress:     ev.FromAddress,
		ToAddress:       ev.ToAddress,
	}
}

// toStatus maps service errors onto gRPC codes. Not-found messages carry
// the sentinel text, which the client matches on.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrAccountNotFound):
		return status.Error(codes.NotFound, common.ErrAccountNotFound.Error())
	case errors.Is(err, common.ErrThreadNotFound):
		return status.Error(codes.NotFound, common.ErrThreadNotFound.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, common.ErrNotFound.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, common.ErrAlreadyExists.Error())
	case errors.Is(err, common.ErrInvalidRequest), errors.Is(err, common.ErrUnknownFolder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrInternal.Error())
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	address, ok := addressFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return address, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *ledgerapi.RegisterRequest) (*ledgerapi.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request", "mail_address", req.MailAddress)

	acc, err := s.ledger.Register(ctx, req.MailAddress, req.Address, req.PublicKey)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &ledgerapi.RegisterResponse{StartingBlock: acc.StartingBlock}, nil
}

func (s *GRPCServer) Challenge(ctx context.Context, req *ledgerapi.ChallengeRequest) (*ledgerapi.ChallengeResponse, error) {
	id, sealed, err := s.ledger.Challenge(ctx, req.Address)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ledgerapi.ChallengeResponse{ChallengeID: id, Sealed: sealed}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *ledgerapi.LoginRequest) (*ledgerapi.LoginResponse, error) {
	token, acc, err := s.ledger.Login(ctx, req.Address, req.ChallengeID, req.Answer)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Logged in", "address", acc.Address)
	return &ledgerapi.LoginResponse{
		AccessToken:   token,
		StartingBlock: acc.StartingBlock,
		MailAddress:   acc.MailAddress,
	}, nil
}

func (s *GRPCServer) ResolveAddress(ctx context.Context, req *ledgerapi.ResolveAddressRequest) (*ledgerapi.ResolveAddressResponse, error) {
	acc, err := s.ledger.ResolveAddress(ctx, req.MailAddress)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ledgerapi.ResolveAddressResponse{
		MailAddress: acc.MailAddress,
		Address:     acc.Address,
		PublicKey:   acc.PublicKey,
	}, nil
}

func (s *GRPCServer) LatestBlock(ctx context.Context, _ *ledgerapi.LatestBlockRequest) (*ledgerapi.LatestBlockResponse, error) {
	block, err := s.ledger.LatestBlock(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ledgerapi.LatestBlockResponse{BlockNumber: block}, nil
}

func (s *GRPCServer) GetThread(ctx context.Context, req *ledgerapi.GetThreadRequest) (*ledgerapi.GetThreadResponse, error) {
	ev, err := s.ledger.GetThread(ctx, req.ThreadID, req.AfterBlock)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ledgerapi.GetThreadResponse{Event: toWire(ev)}, nil
}

func (s *GRPCServer) GetMails(ctx context.Context, req *ledgerapi.GetMailsRequest) (*ledgerapi.GetMailsResponse, error) {
	address, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	folder := models.Folder(req.Folder)
	if folder != models.FolderInbox && folder != models.FolderOutbox {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %q", common.ErrUnknownFolder, req.Folder)
	}

	events, from, err := s.ledger.GetMails(ctx, address, folder, req.FetchToBlock, req.BatchSize, req.StartingBlock)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &ledgerapi.GetMailsResponse{Events: make([]ledgerapi.Event, 0, len(events)), FromBlock: from}
	for i := range events {
		resp.Events = append(resp.Events, toWire(&events[i]))
	}
	return resp, nil
}

func (s *GRPCServer) SendMail(ctx context.Context, req *ledgerapi.SendMailRequest) (*ledgerapi.SendMailResponse, error) {
	address, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	ev, err := s.ledger.SendMail(ctx, address, req.ToAddress, req.MailHash, req.ThreadHash, req.ThreadID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ledgerapi.SendMailResponse{TransactionHash: ev.TransactionHash, BlockNumber: ev.BlockNumber}, nil
}

// ListenForMails streams the caller's new events until the client goes
// away. A subscriber that falls behind is cut off with ResourceExhausted.
func (s *GRPCServer) ListenForMails(_ *ledgerapi.ListenRequest, stream ledgerapi.LedgerService_ListenForMailsServer) error {
	ctx := stream.Context()
	address, err := s.caller(ctx)
	if err != nil {
		return err
	}

	events, cancel := s.ledger.Subscribe(address)
	defer cancel()

	s.logger.Debug(ctx, "listener attached", "address", address)

	for {
		select {
		case <-ctx.Done():
			return nil
		case te, ok := <-events:
			if !ok {
				return status.Error(codes.ResourceExhausted, "subscriber too slow")
			}
			if err := stream.Send(&ledgerapi.ListenEvent{Event: toWire(&te.Event), Folder: string(te.Folder)}); err != nil {
				return err
			}
		}
	}
}
