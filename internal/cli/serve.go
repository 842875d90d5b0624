package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API without the terminal UI",
		Long: `Serve the task list over HTTP.

Examples:
  lazytodo serve --port 8080
  lazytodo serve --store bolt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := newHTTPServer(a)
			errCh := make(chan error, 1)
			go func() {
				errCh <- serveHTTP(srv)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Web server running at http://%s\n", srv.Addr)
			a.log.Info("web server listening", zap.String("addr", srv.Addr))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownHTTP(srv, a.log)
				return nil
			}
		},
	}
}

// webHost is the only interface the API listens on.
const webHost = "127.0.0.1"

func newHTTPServer(a *app) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	return &http.Server{
		Addr:              net.JoinHostPort(webHost, strconv.Itoa(a.cfg.WebPort)),
		Handler:           web.NewServer(a.engine, a.log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func serveHTTP(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdownHTTP(srv *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("web server shutdown", zap.Error(err))
	}
}
