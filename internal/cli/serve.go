package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/routes"
	"github.com/yoockh/mockinterview/internal/interview"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Drive the interview from a local UI over HTTP and websocket",
	Long: `Wire the interview session and expose it as the companion API: session
control, proctoring events from the UI, progress guards and a websocket
stream of state and transcript events. Answers are posted by the UI unless a
microphone is configured.`,
	RunE: runServeCmd,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default HTTP_ADDRESS)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := a.progress.Get(ctx)
	if err != nil {
		return err
	}

	// no typed input: a capture window stays open until the UI posts the answer
	pr, pw := io.Pipe()
	defer pw.Close()

	s, err := a.openSession(ctx, p, sessionOptions{out: cmd.OutOrStdout(), input: pr})
	if err != nil {
		return err
	}
	defer s.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.HTTPAddress
	}
	srv := a.startServer(addr, s)
	defer shutdownServer(srv, a)

	select {
	case <-ctx.Done():
	case <-s.coord.Finished():
		// give the UI a moment to fetch the summary
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}

	endCtx, cancel := context.WithTimeout(context.Background(), a.cfg.RPCTimeout)
	defer cancel()
	if _, err := s.coord.End(endCtx, interview.ReasonClosed); err != nil {
		a.log.WithError(err).Warn("end on shutdown")
	}
	return nil
}

func (a *app) router(s *liveSession) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		Session:  handlers.NewSessionHandler(s.coord),
		Proctor:  handlers.NewProctorHandler(s.monitor),
		Progress: handlers.NewProgressHandler(a.progress, a.reports),
		WS:       handlers.NewWSHandler(s.hub, s.coord),
		Log:      a.log,
	})
	return r
}

func (a *app) startServer(addr string, s *liveSession) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes.Handler(a.router(s)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.log.WithField("addr", addr).Info("companion API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("companion API stopped")
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).WithField("addr", srv.Addr).Warn("companion API shutdown")
	}
}
