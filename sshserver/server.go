package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/codecanvas/core"
	"pkt.systems/codecanvas/internal/eventbus"
	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// CommandHandler interprets terminal lines.
type CommandHandler interface {
	Handle(ctx context.Context, sessionID schema.SessionID, input string) (schema.TerminalAction, error)
}

// Server exposes the playground terminal over SSH. There is no
// authentication. Each connection opens its own session unless AllowAttach
// is set and the SSH user name names a live session.
type Server struct {
	Addr         string
	HostKeyPath  string
	Listener     net.Listener
	Service      core.Service
	Handler      CommandHandler
	EventBus     *eventbus.Bus
	Prompt       string
	InitialLines int
	AllowAttach  bool
	logger       pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Service == nil || s.Handler == nil {
		return errors.New("ssh server requires a service and a command handler")
	}
	if s.Prompt == "" {
		s.Prompt = schema.PromptPrefix
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}

	hostKey, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	if hostKey.Created {
		s.logger.Info("ssh host key created", "path", hostKey.Path)
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	server.AddHostKey(hostKey.Signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	addr := s.Addr
	if s.Listener != nil {
		addr = s.Listener.Addr().String()
	}
	s.logger.Info("ssh server listening", "addr", addr, "fingerprint", hostKey.Fingerprint())

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := sess.RemoteAddr().String()
	log = log.With("remote", remote, "user", sess.User())
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		return
	}

	var ctx context.Context = sess.Context()
	sessionID, created, err := s.attach(ctx, schema.SessionID(sess.User()))
	if err != nil {
		log.Warn("ssh session rejected", "err", err)
		_, _ = io.WriteString(sess, "failed to open session\n")
		return
	}
	log = log.With("session", sessionID)
	ctx = logx.ContextWithSessionLogger(ctx, log, sessionID)
	if created {
		defer func() {
			if _, err := s.Service.CloseSession(context.WithoutCancel(ctx), schema.CloseSessionRequest{SessionID: sessionID}); err != nil {
				log.Warn("ssh session close failed", "err", err)
			}
		}()
	}

	log.Info("ssh session opened", "term", pty.Term, "created", created)
	var events <-chan eventbus.Event
	var unsubscribe func()
	if s.EventBus != nil {
		events, unsubscribe = s.EventBus.Subscribe(sessionID)
	}
	if unsubscribe != nil {
		defer unsubscribe()
	}
	ui := newTerminalSession(sess, s.Service, s.Handler, sessionID, s.Prompt, events)
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	if err := ui.Run(ctx, winCh, s.InitialLines); err != nil {
		log.Warn("ssh session ended with error", "err", err)
	}
	log.Info("ssh session closed")
}

// attach returns the session named by user when attaching is allowed and
// it exists, otherwise a freshly opened one. created reports whether this
// connection owns it.
func (s *Server) attach(ctx context.Context, user schema.SessionID) (schema.SessionID, bool, error) {
	if s.AllowAttach && schema.ValidateSessionID(user) == nil {
		if _, err := s.Service.GetWorkspace(ctx, schema.GetWorkspaceRequest{SessionID: user}); err == nil {
			return user, false, nil
		}
	}
	resp, err := s.Service.OpenSession(ctx, schema.OpenSessionRequest{})
	if err != nil {
		return "", false, err
	}
	return resp.SessionID, resp.Created, nil
}
