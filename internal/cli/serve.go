package cli

import (
	"github.com/spf13/cobra"

	"github.com/lifelock-app/lifelock/internal/daemon"
	"github.com/lifelock-app/lifelock/internal/mcp"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LifeLock API server",
	Long:  `Start the HTTP API, the MCP endpoint at /mcp and /metrics at localhost:7340.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(cmd.Context())
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		d.Config.API.Host = serveHost
	}
	if servePort > 0 {
		d.Config.API.Port = servePort
	}

	return d.Serve(cmd.Context())
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long:  `Run an MCP server on stdin/stdout for assistants that launch LifeLock as a subprocess.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()
		return mcp.ServeStdio(d.MCP)
	},
}
