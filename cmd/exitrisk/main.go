package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jmerrifield20/exitrisk/pkg/client"
	"github.com/jmerrifield20/exitrisk/pkg/ipaddr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultServerURL = "http://localhost:5000"

var (
	serverURL string
	cfgFile   string
	insecure  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "exitrisk",
	Short: "Exit-node risk checker CLI",
	Long: `exitrisk queries an exit-node risk checker server.

It scores IP addresses, lists the stored exit-node observations, and
removes addresses from the store.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.exitrisk")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("exitrisk")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = defaultServerURL
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.exitrisk/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default "+defaultServerURL+")")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification (development only)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient(opts ...client.Option) (*client.Client, error) {
	if insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	return client.New(serverURL, opts...)
}

// ── check ────────────────────────────────────────────────────────────────────

// checkRow holds the outcome of a single address check.
type checkRow struct {
	ip     string
	result *client.CheckResult
	err    error
}

var checkFormat string

var checkCmd = &cobra.Command{
	Use:   "check <ip> [ip] ...",
	Short: "Score one or more IP addresses",
	Long: `Check asks the server for the risk score of each address.

Addresses are validated locally first. Multiple addresses are checked
concurrently and printed as a table:

  exitrisk check 185.220.101.1 2001:db8::42`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "Output format: text or json")
}

func runCheck(cmd *cobra.Command, args []string) error {
	for _, ip := range args {
		if !ipaddr.IsValid(ip) {
			return fmt.Errorf("invalid IP address %q", ip)
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rows := make([]checkRow, len(args))
	done := make(chan struct{}, len(args))
	for i, ip := range args {
		go func() {
			r, err := c.Check(ctx, ip)
			rows[i] = checkRow{ip: ip, result: r, err: err}
			done <- struct{}{}
		}()
	}
	for range args {
		<-done
	}

	out := cmd.OutOrStdout()
	if checkFormat == "json" {
		return printCheckJSON(out, rows)
	}
	return printCheckText(out, rows)
}

func printCheckJSON(out io.Writer, rows []checkRow) error {
	type jsonRow struct {
		IP string `json:"ip"`
		*client.CheckResult
		Error string `json:"error,omitempty"`
	}
	jr := make([]jsonRow, len(rows))
	for i, r := range rows {
		jr[i] = jsonRow{IP: r.ip, CheckResult: r.result}
		if r.err != nil {
			jr[i].Error = r.err.Error()
		}
	}
	var v any = jr
	if len(jr) == 1 {
		v = jr[0]
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCheckText(out io.Writer, rows []checkRow) error {
	if len(rows) == 1 {
		r := rows[0]
		if r.err != nil {
			return fmt.Errorf("check %q: %w", r.ip, r.err)
		}
		if !r.result.Found() {
			fmt.Fprintln(out, r.result.Message)
			fmt.Fprintf(out, "Last checked: %s\n", r.result.LastChecked)
			return nil
		}
		fmt.Fprintf(out, "IP:           %s\n", r.ip)
		fmt.Fprintf(out, "Exit node:    %t\n", r.result.IsTorExitNode)
		fmt.Fprintf(out, "Risk score:   %d\n", r.result.RiskScore)
		fmt.Fprintf(out, "Risk level:   %s\n", r.result.RiskLevel)
		fmt.Fprintf(out, "Explanation:  %s\n", r.result.Explanation)
		fmt.Fprintf(out, "Last checked: %s\n", r.result.LastChecked)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IP\tEXIT NODE\tSCORE\tLEVEL\tERROR")
	for _, r := range rows {
		switch {
		case r.err != nil:
			fmt.Fprintf(w, "%s\t\t\t\t%s\n", r.ip, r.err.Error())
		case !r.result.Found():
			fmt.Fprintf(w, "%s\t-\t-\tnot found\t\n", r.ip)
		default:
			fmt.Fprintf(w, "%s\t%t\t%d\t%s\t\n",
				r.ip, r.result.IsTorExitNode, r.result.RiskScore, r.result.RiskLevel)
		}
	}
	return w.Flush()
}

// ── list ─────────────────────────────────────────────────────────────────────

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored exit-node addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ips, err := c.List(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if listFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string][]string{"tor_exit_nodes": ips})
		}
		return printList(out, ips)
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
}

// printList writes the addresses as two columns, IPv4 and IPv6.
func printList(out io.Writer, ips []string) error {
	var v4, v6 []string
	for _, ip := range ips {
		if ipaddr.IsIPv6(ip) {
			v6 = append(v6, ip)
		} else {
			v4 = append(v4, ip)
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IPV4\tIPV6")
	for i := range max(len(v4), len(v6)) {
		var a, b string
		if i < len(v4) {
			a = v4[i]
		}
		if i < len(v6) {
			b = v6[i]
		}
		fmt.Fprintf(w, "%s\t%s\n", a, b)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d address(es): %d IPv4, %d IPv6\n", len(ips), len(v4), len(v6))
	return nil
}

// ── delete ───────────────────────────────────────────────────────────────────

var deleteToken string

var deleteCmd = &cobra.Command{
	Use:   "delete <ip>",
	Short: "Remove an address from the store",
	Long: `Delete removes the stored observation for an address.

When the server has an admin secret configured, pass an admin token
obtained with "exitrisk token" via --token or the admin_token config key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ipaddr.IsValid(args[0]) {
			return fmt.Errorf("invalid IP address %q", args[0])
		}
		token := deleteToken
		if token == "" {
			token = viper.GetString("admin_token")
		}

		var opts []client.Option
		if token != "" {
			opts = append(opts, client.WithAdminToken(token))
		}
		c, err := newClient(opts...)
		if err != nil {
			return err
		}

		deleted, err := c.Delete(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%s is not in the database", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteToken, "token", "", "Admin bearer token")
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the admin secret for an admin token",
	Long: `Token reads the admin secret from stdin (or the EXITRISK_ADMIN_SECRET
environment variable) and prints an admin bearer token:

  export EXITRISK_ADMIN_TOKEN=$(exitrisk token < secret.txt)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString("admin_secret")
		if secret == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read secret: %w", err)
			}
			secret = strings.TrimSpace(line)
		}
		if secret == "" {
			return errors.New("admin secret is required")
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		token, err := c.AdminToken(context.Background(), secret)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the exitrisk CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "exitrisk %s\n", version)
	},
}
