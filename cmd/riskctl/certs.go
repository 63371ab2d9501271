package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenielthevis/capstone-project-sub006/pkg/tlsutil"
)

// dev-certs flag values.
var (
	certHosts []string
	certOut   string
)

// devCertsCmd writes a self-signed CA and server certificate for local TLS.
var devCertsCmd = &cobra.Command{
	Use:   "dev-certs",
	Short: "Generate a self-signed CA and server certificate",
	Long: `Write ca.pem, ca-key.pem, server.pem and server-key.pem for running riskd
with TLS_CERT_FILE and TLS_KEY_FILE during development.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := tlsutil.GenerateSelfSignedCert(certHosts, certOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "certificates written to %s\n", certOut)
		return nil
	},
}

func init() {
	devCertsCmd.Flags().StringSliceVar(&certHosts, "host", nil, "DNS names or IPs for the server certificate (default localhost)")
	devCertsCmd.Flags().StringVar(&certOut, "out", "./certs", "output directory")
}
