package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/melonmail/internal/client/config"
	"github.com/dmitrijs2005/melonmail/internal/client/contentstore"
	"github.com/dmitrijs2005/melonmail/internal/client/ledger"
	"github.com/dmitrijs2005/melonmail/internal/client/mailbox"
	"github.com/dmitrijs2005/melonmail/internal/cryptox"
	"github.com/dmitrijs2005/melonmail/internal/logging"
)

// App is the interactive client. It owns at most one logged-in session.
type App struct {
	config  *config.Config
	logger  logging.Logger
	ledger  ledger.Client
	content contentstore.Gateway
	closers []io.Closer

	sync     *mailbox.Synchronizer
	threads  *mailbox.ThreadReconstructor
	sender   *mailbox.Sender
	listener *mailbox.Listener

	identity *cryptox.Identity
	sess     *mailbox.Session
	liveCtx  context.Context

	reader *bufio.Reader
	outMu  sync.Mutex
	out    io.Writer
}

// NewApp connects to the ledger daemon and the content store named in c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	lc, err := ledger.NewGRPCClient(c.LedgerAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("ledger client: %w", err)
	}

	content, closers, err := newContentStore(ctx, c, logger)
	if err != nil {
		_ = lc.Close()
		return nil, err
	}

	a := newApp(c, lc, content, logger, os.Stdin, os.Stdout)
	a.closers = closers
	return a, nil
}

func newContentStore(ctx context.Context, c *config.Config, logger logging.Logger) (contentstore.Gateway, []io.Closer, error) {
	var (
		store   contentstore.Gateway
		closers []io.Closer
	)

	if c.S3.Bucket != "" {
		s3store, err := contentstore.NewS3Store(ctx, contentstore.S3Options{
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("content store: %w", err)
		}
		store = s3store
	} else {
		logger.Warn(ctx, "no S3 bucket configured, mail content is kept in memory")
		store = contentstore.NewMemoryStore()
	}

	if c.RedisAddr != "" {
		rdb := contentstore.NewRedisClient(c.RedisAddr)
		closers = append(closers, rdb)
		store = contentstore.NewRedisCache(store, rdb, c.CacheTTL, logger)
	}

	return store, closers, nil
}

func newApp(c *config.Config, lc ledger.Client, content contentstore.Gateway, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:   c,
		logger:   logger,
		ledger:   lc,
		content:  content,
		sync:     mailbox.NewSynchronizer(lc, content, logger),
		threads:  mailbox.NewThreadReconstructor(lc, content, logger),
		sender:   mailbox.NewSender(lc, content, logger),
		listener: mailbox.NewListener(lc, content, logger),
		liveCtx:  context.Background(),
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	a.liveCtx = ctx
	defer a.Close(ctx)

	fmt.Fprintln(a.out, "Welcome to melonmail (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close ends the session and releases connections.
func (a *App) Close(ctx context.Context) {
	a.endSession(ctx)
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn(ctx, "closing ledger connection", "error", err)
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.sess != nil
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	s := a.sess.MailAddress() + " " + a.sess.Folder().String()
	if a.sess.Subscription() != nil {
		s += " live"
	}
	return fmt.Sprintf("(%s)", s)
}

// qualify turns a bare user name into a full mail address.
func (a *App) qualify(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "@") {
		return name
	}
	return name + "@" + a.config.MailDomain
}

// requestCtx bounds one command's network calls by the configured timeout.
func (a *App) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) fail(ctx context.Context, msg string, err error) error {
	a.logger.Error(ctx, msg, "error", err)
	a.printf("%s: %v\n", msg, err)
	return err
}
