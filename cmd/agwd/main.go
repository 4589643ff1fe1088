package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/agw/internal/bootstrap"
	"github.com/cuemby/agw/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agwd",
	Short: "agwd is the data-plane process of the API gateway",
	Long: `agwd runs the data plane half of the API gateway: it streams routing
configuration from a control plane, terminates and proxies HTTP(S) traffic
according to that configuration, runs per-request policy in a WebAssembly
sandbox, and optionally accelerates co-located traffic with a kernel
socket-redirect fast path.`,
	RunE: runAgwd,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().String("node-id", defaultNodeID(), "Identity this process presents to the control plane")
	rootCmd.Flags().String("cp-url", envOrDefault("CP_URL", "http://localhost:18000"), "Control-plane address (env CP_URL)")
	rootCmd.Flags().String("cert-dir", "./agw-certs", "Directory where listener TLS material is materialized")
	rootCmd.Flags().String("resources-file", "", "YAML file describing external resource pools (kv, sql_a, sql_b)")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the Prometheus metrics endpoint (empty disables it)")
	rootCmd.Flags().String("cgroup-path", "/sys/fs/cgroup", "cgroup v2 path the kernel fast path attaches to")
	rootCmd.Flags().Bool("disable-fastpath", false, "Skip attaching the kernel socket-redirect fast path")
	rootCmd.Flags().String("audit-db", "./agw-audit.db", "Path to the bbolt database recording deny/error verdicts (empty disables it)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runAgwd(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node-id")
	cpURL, _ := cmd.Flags().GetString("cp-url")
	certDir, _ := cmd.Flags().GetString("cert-dir")
	resourcesFile, _ := cmd.Flags().GetString("resources-file")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	cgroupPath, _ := cmd.Flags().GetString("cgroup-path")
	disableFastpath, _ := cmd.Flags().GetBool("disable-fastpath")
	auditDBPath, _ := cmd.Flags().GetString("audit-db")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return bootstrap.Run(ctx, bootstrap.Config{
		NodeID:          nodeID,
		ControlPlaneURL: cpURL,
		CertDir:         certDir,
		ResourcesFile:   resourcesFile,
		MetricsAddr:     metricsAddr,
		CgroupPath:      cgroupPath,
		DisableFastpath: disableFastpath,
		AuditDBPath:     auditDBPath,
	})
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "agwd"
	}
	return host
}
