package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-drift/lvbind/pkg/display"
	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/remote"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Addr  string
	Ticks int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scene and serve it over a websocket",
		Long: `Build the configured scene on the reference engine and step it at the
configured interval. Every flushed region is sent to connected websocket
clients, and their pointer and key samples drive the engine's input devices.

Example:
  lvsim run --config panel.yaml --addr 127.0.0.1:8080
  lvsim run --ticks 600 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides remote.addr)")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")

	return cmd
}

func runSim(cmd *cobra.Command, opts *RunOptions) error {
	res, err := opts.load()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		res.Addr = opts.Addr
	}
	logger := errors.Logger()

	// The adapter needs its sink before the server exists; nothing is
	// flushed until the first step.
	var srv *remote.Server
	sink := display.SinkFunc(func(x, y, w, h int, pixels []byte) error {
		return srv.WriteRegion(x, y, w, h, pixels)
	})
	st, err := newStack(res, res.Format, sink, logger)
	if err != nil {
		return err
	}
	defer st.close()

	srv, err = remote.NewServer(remote.Config{
		Width:   res.Width,
		Height:  res.Height,
		Format:  res.Format,
		Session: st.rt.Session(),
		Buffer:  res.Buffer,
	}, st.rt.Logger())
	if err != nil {
		return err
	}
	defer srv.Close()

	ln, err := net.Listen("tcp", res.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", res.Addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(res.Path, srv.Handler())
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving ws://%s%s (session %s)\n", ln.Addr(), res.Path, st.rt.Session())

	ticks := 0
	err = st.driver.Run(ctx, res.Interval, func() {
		srv.Apply(st.input)
		ticks++
		if opts.Ticks > 0 && ticks >= opts.Ticks {
			cancel()
		}
	})
	if err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	regions, dropped := srv.Stats()
	logger.Info("simulator stopped", "ticks", st.driver.Ticks(), "regions", regions, "dropped_samples", dropped)
	return nil
}
