package eventloop

import (
	"context"
	"errors"
	"log"

	"circle-search/src/geometry"
	"circle-search/src/overlay"
	"circle-search/src/session"
	"circle-search/src/singleinstance"
	"circle-search/src/worker"
)

// Source identifies what started a session.
type Source string

const (
	SourceHotkey    Source = "hotkey"
	SourceTray      Source = "tray"
	SourceDelegated Source = "run-once"
)

// ErrBusy is reported to delegated clients while a session is in flight.
var ErrBusy = errors.New("Busy, please retry")

// Options wires the loop to its collaborators. Selector and Process are required.
type Options struct {
	Selector overlay.Selector
	Process  worker.ProcessFunc
	// Server accepts run-once delegation requests. Optional.
	Server singleinstance.Server
	// LocalTarget receives links from hotkey and tray sessions.
	LocalTarget session.ResultTarget
	// Open is used for delegated OPEN requests. Defaults to the system opener.
	Open func(string) error
	// Notify shows a session failure to the user. Optional.
	Notify func(title, message string)
	// OnBusyChange is called on the loop goroutine whenever a session starts or ends.
	OnBusyChange func(busy bool)
}

// Loop is the single consumer of triggers. Selection runs on the loop goroutine,
// the rest of the session on the worker pool, and delivery back on the loop.
type Loop struct {
	opts     Options
	pool     *worker.Pool
	busy     bool
	triggers chan Source
	results  chan result
	stopped  chan struct{}
}

type result struct {
	res    session.Result
	err    error
	target pendingTarget
	cancel context.CancelFunc
}

// pendingTarget is a ResultTarget that may own a connection.
type pendingTarget struct {
	session.ResultTarget
	conn singleinstance.Conn
}

func (t pendingTarget) close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

// New creates a loop with a one-worker pool and a one-slot queue.
func New(opts Options) *Loop {
	if opts.LocalTarget == nil {
		opts.LocalTarget = session.BrowserTarget{Open: opts.Open}
	}
	return &Loop{
		opts:     opts,
		pool:     worker.New(1, opts.Process),
		triggers: make(chan Source, 1),
		results:  make(chan result, 1),
		stopped:  make(chan struct{}),
	}
}

// Trigger asks the loop to start a session. It never blocks; a trigger arriving
// while another one is pending is dropped and false is returned.
func (l *Loop) Trigger(src Source) bool {
	select {
	case l.triggers <- src:
		return true
	default:
		log.Printf("Trigger from %s dropped: another trigger is pending", src)
		return false
	}
}

// Run processes triggers until ctx is cancelled. It owns the pool and the
// single-instance server and releases both on return.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		close(l.stopped)
		l.pool.Close()
	}()

	var reqCh chan singleinstance.Conn
	if srv := l.opts.Server; srv != nil {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Close()
		log.Printf("Resident listening on 127.0.0.1:%d", srv.Port())
		reqCh = make(chan singleinstance.Conn)
		go l.accept(ctx, srv, reqCh)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case src := <-l.triggers:
			l.handleTrigger(ctx, src)
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) accept(ctx context.Context, srv singleinstance.Server, reqCh chan<- singleinstance.Conn) {
	defer close(reqCh)
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		select {
		case reqCh <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context, src Source) {
	log.Printf("handleTrigger: %s", src)
	if l.busy {
		log.Printf("handleTrigger: busy, ignoring %s trigger", src)
		return
	}
	l.startSession(ctx, src, pendingTarget{ResultTarget: l.opts.LocalTarget})
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := pendingTarget{
		ResultTarget: session.DelegatedTarget{Conn: conn, Open: l.opts.Open},
		conn:         conn,
	}
	if l.busy {
		log.Printf("handleConn: busy, rejecting run-once request")
		_ = target.OnFailure(ErrBusy)
		target.close()
		return
	}
	l.startSession(ctx, SourceDelegated, target)
}

func (l *Loop) startSession(ctx context.Context, src Source, target pendingTarget) {
	rect, cancelled, err := l.opts.Selector.Select(ctx)
	if err != nil {
		log.Printf("startSession(%s): selection error: %v", src, err)
		l.fail(target, &session.StageError{Stage: session.StageSelect, Err: err})
		return
	}
	if cancelled {
		log.Printf("startSession(%s): selection cancelled", src)
		_ = target.OnFailure(session.ErrSelectionCancelled)
		target.close()
		return
	}
	l.submit(ctx, rect, target)
}

func (l *Loop) submit(ctx context.Context, rect geometry.Rectangle, target pendingTarget) {
	jobCtx, cancel := context.WithCancel(ctx)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, rect, func(res session.Result, err error) {
		select {
		case l.results <- result{res: res, err: err, target: target, cancel: cancel}:
		case <-l.stopped:
			cancel()
			target.close()
		}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		log.Printf("submit: worker queue full")
		_ = target.OnFailure(ErrBusy)
		target.close()
	}
}

func (l *Loop) handleResult(r result) {
	defer func() {
		l.setBusy(false)
		r.cancel()
		r.target.close()
	}()
	if err := session.Deliver(r.target, r.res, r.err); err != nil {
		log.Printf("handleResult: session failed: %v", err)
		l.notify(err)
		return
	}
	log.Printf("handleResult: delivered search link for %dx%d region", r.res.Rect.Width, r.res.Rect.Height)
}

func (l *Loop) fail(target pendingTarget, err error) {
	_ = target.OnFailure(err)
	target.close()
	l.notify(err)
}

func (l *Loop) notify(err error) {
	if l.opts.Notify != nil {
		l.opts.Notify("Circle Search", session.Describe(err))
	}
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.opts.OnBusyChange != nil {
		l.opts.OnBusyChange(b)
	}
}

// Busy reports whether a session is in flight. Only meaningful on the loop goroutine
// or after Run returned.
func (l *Loop) Busy() bool { return l.busy }
