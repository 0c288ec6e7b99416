package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/host/ws"
	"github.com/teranos/dossier/logger"
)

// HostPath is the websocket endpoint served by `dossier serve`
const HostPath = "/host"

// ServeCmd exposes the in-process host over websocket
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the in-process host over websocket",
	Long: `Serve the in-process host (bundled providers and settings.json) over a websocket
at ws://<host.listen>/host. Point another dossier at it with host.address.`,
	RunE: runServe,
}

var serveListen string

func init() {
	ServeCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides host.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr := cfg.Host.Listen
	if serveListen != "" {
		addr = serveListen
	}

	h, _, err := newLocalHost(cfg)
	if err != nil {
		return err
	}

	log := logger.ComponentLogger("serve")
	mux := http.NewServeMux()
	mux.Handle(HostPath, ws.NewServer(h, log))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	pterm.Info.Printfln("Serving host at ws://%s%s (Ctrl+C to stop)", addr, HostPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "failed to serve on %s", addr)
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Infow("Shutting down host server", logger.FieldAddress, addr)
	return srv.Shutdown(shutdownCtx)
}
