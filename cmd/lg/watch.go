package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Print graph and export events as they are published",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = cfg.NATSURL
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS server: set LG_NATS_URL or --nats")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(out, data)
			}
		}
	},
}

// printEvent writes one line per event payload. Raw JSON is passed through
// unchanged with --json.
func printEvent(w io.Writer, data []byte) {
	if jsonOutput {
		fmt.Fprintln(w, string(data))
		return
	}

	var probe struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		fmt.Fprintf(w, "%s %s\n", ui.RenderWarn("unreadable event"), string(data))
		return
	}

	switch {
	case probe.Source != "":
		ev, err := events.DecodeGraphBuilt(data)
		if err != nil {
			fmt.Fprintf(w, "%s %v\n", ui.RenderWarn("unreadable event"), err)
			return
		}
		what := "root " + ui.RenderKey(ev.RootIssue)
		if ev.Source == model.SourceBulk {
			what = fmt.Sprintf("%d seeds", len(ev.Seeds))
		}
		fmt.Fprintf(w, "%s %s %s: %d issues, %d relationships\n",
			ev.Timestamp.Format("15:04:05"), ui.RenderAccent(ev.Source), what, ev.IssueCount, ev.RelationshipCount)
	case probe.Destination != "":
		var ev events.Exported
		if err := json.Unmarshal(data, &ev); err != nil {
			fmt.Fprintf(w, "%s %v\n", ui.RenderWarn("unreadable event"), err)
			return
		}
		fmt.Fprintf(w, "%s %s %s: %d issues, %d bytes\n",
			ev.Timestamp.Format("15:04:05"), ui.RenderAccent("export"), ev.Destination, ev.IssueCount, ev.Bytes)
	default:
		fmt.Fprintln(w, string(data))
	}
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "NATS subject to watch")
	watchCmd.Flags().String("nats", "", "NATS server URL (overrides LG_NATS_URL)")
}
