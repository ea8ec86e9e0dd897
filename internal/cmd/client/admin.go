package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

type logLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type logResult struct {
	Size  int       `json:"size"`
	Lines []logLine `json:"lines"`
}

// NewLogCommand constructs the `log` command, which queries /v1/log.
func NewLogCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the server log, optionally filtered with CEL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			showIndex, _ := cmd.Flags().GetBool("index")

			q := url.Values{}
			if filter != "" {
				q.Set("filter", filter)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			u := baseURL() + "/v1/log"
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			var res logResult
			if err := getJSON(cmd.Context(), u, &res); err != nil {
				return err
			}
			for _, l := range res.Lines {
				if showIndex {
					fmt.Fprintf(cmd.OutOrStdout(), "%5d  %s\n", l.Index, l.Text)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), l.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("filter", "", "CEL expression over line, index, size, is_timestamp")
	cmd.Flags().Int("limit", 0, "Only the last N matching lines")
	cmd.Flags().Bool("index", false, "Prefix each line with its position")
	return cmd
}

type taskRow struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Label   string    `json:"label"`
	Status  string    `json:"status"`
	Started time.Time `json:"started"`
}

// NewTasksCommand constructs the `tasks` command, which lists /v1/tasks.
func NewTasksCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List live worker tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			u := baseURL() + "/v1/tasks"
			if kind != "" {
				u += "?kind=" + url.QueryEscape(kind)
			}
			var res struct {
				Tasks []taskRow `json:"tasks"`
			}
			if err := getJSON(cmd.Context(), u, &res); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tLABEL\tSTATUS\tAGE")
			for _, t := range res.Tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Kind, t.Label, t.Status, time.Since(t.Started).Round(time.Second))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("kind", "", "Filter by kind (conn|timer)")
	return cmd
}

// NewHealthCommand constructs the `health` command, which calls the gRPC
// health service.
func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			service, _ := cmd.Flags().GetString("service")
			asJSON, _ := cmd.Flags().GetBool("json")
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			conn, err := dialGRPC(addr)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
			if err != nil {
				return err
			}
			if asJSON {
				b, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(res)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", res.GetStatus())
			}
			if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("not serving")
			}
			return nil
		},
	}
	cmd.Flags().String("addr", grpcAddrFromEnv(), "Admin gRPC address (env AESD_GRPC)")
	cmd.Flags().String("service", "", "Service name to check")
	cmd.Flags().Bool("json", false, "Print the raw response as JSON")
	return cmd
}
