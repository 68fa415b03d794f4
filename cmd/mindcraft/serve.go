package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/server"
)

var (
	serveAddr       string
	serveGRPCAddr   string
	serveCharacters string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the characters of the world over WebSocket",
		Long:  longServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.addCharacters(ctx, serveCharacters); err != nil {
				return err
			}

			httpAddr, grpcAddr := cfg.Server.Addr, cfg.Server.GRPCAddr
			if serveAddr != "" {
				httpAddr = serveAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				grpcAddr = serveGRPCAddr
			}
			logger.Info("serving", "world", cfg.World.Name, "characters", len(a.game.NPCs()))
			return server.New(a.game, a.reactOptions()).ListenAndServe(ctx, httpAddr, grpcAddr)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP address (default: server.addr)")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "gRPC health address, empty disables it (default: server.grpc_addr)")
	serveCmd.Flags().StringVar(&serveCharacters, "characters", "", "YAML character sheet (default: npc.characters_file)")
}

var longServe = `
Loads the characters of a sheet into the world and answers over WebSocket.

Endpoints:
  /ws      send {"character": "...", "interaction": "...", "stream": true}
  /health  world and character status
  gRPC     grpc.health.v1.Health on server.grpc_addr
`
