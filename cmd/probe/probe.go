package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/martinsuchenak/camdash/cmd/report"
	"github.com/martinsuchenak/camdash/internal/config"
	"github.com/martinsuchenak/camdash/internal/metrics"
	"github.com/martinsuchenak/camdash/internal/model"
	netprobe "github.com/martinsuchenak/camdash/internal/probe"
	"github.com/paularlott/cli"
)

// Command checks which listed devices answer on the network
func Command() *cli.Command {
	flags := append(config.SourceFlags(),
		report.FileFlag(),
		&cli.StringFlag{
			Name:         "community",
			Usage:        "SNMP v2c community; empty disables SNMP",
			DefaultValue: config.DefaultSNMPCommunity,
			EnvVars:      []string{"CAMDASH_SNMP_COMMUNITY"},
		},
		&cli.IntFlag{
			Name:         "timeout",
			Usage:        "Per-port timeout in seconds",
			DefaultValue: 2,
		},
		&cli.IntFlag{
			Name:         "concurrency",
			Usage:        "Devices probed at once",
			DefaultValue: 10,
		},
		&cli.StringFlag{
			Name:  "location",
			Usage: "Only probe plant (1F) or ho devices",
		},
		&cli.StringFlag{
			Name:  "area",
			Usage: "Only probe devices in this plant area",
		},
		&cli.BoolFlag{
			Name:  "live-only",
			Usage: "Skip devices whose status is not live",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print results as JSON",
		},
	)

	return &cli.Command{
		Name:        "probe",
		Usage:       "Probe inventory devices over TCP and SNMP",
		Description: "Check that the cameras and NVRs listed in the inventory answer on their IP address",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			filter, err := report.Filter(cmd.GetString("location"), cmd.GetString("area"))
			if err != nil {
				return err
			}

			snap, _, err := report.LoadSnapshot(ctx, cmd)
			if err != nil {
				return err
			}

			devices := Select(snap.Devices, filter, cmd.GetBool("live-only"))

			p := netprobe.New(cmd.GetString("community"))
			if v := cmd.GetInt("timeout"); v > 0 {
				p.Timeout = time.Duration(v) * time.Second
			}
			if v := cmd.GetInt("concurrency"); v > 0 {
				p.Concurrency = v
			}

			results := p.ProbeAll(ctx, devices)

			if cmd.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"summary": netprobe.Summarize(results),
					"results": results,
				})
			}
			return Render(os.Stdout, results)
		},
	}
}

// Select applies the location filter and, with liveOnly, drops devices that
// are not live
func Select(devices []model.Device, f model.LocationFilter, liveOnly bool) []model.Device {
	view := metrics.FilterLocation(devices, f)
	if !liveOnly {
		return view
	}
	return metrics.FilterStatus(view, model.StatusLive)
}

// Render prints one line per device followed by the totals
func Render(w io.Writer, results []netprobe.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tNAME\tIP\tSTATE\tPORTS\tSNMP")
	for _, r := range results {
		state := "down"
		switch {
		case r.Skipped:
			state = "skipped"
		case r.Reachable:
			state = "up"
		}

		ports := make([]string, len(r.OpenPorts))
		for i, p := range r.OpenPorts {
			ports[i] = fmt.Sprint(p)
		}

		detail := r.SysDescr
		if r.Uptime > 0 {
			detail = strings.TrimSpace(fmt.Sprintf("%s (up %s)", detail, r.Uptime.Truncate(time.Minute)))
		}
		if detail == "" {
			detail = r.Error
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Row, r.Name, r.IP, state, strings.Join(ports, ","), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := netprobe.Summarize(results)
	_, err := fmt.Fprintf(w, "\nProbed %d: %d reachable, %d unreachable, %d skipped\n",
		s.Probed, s.Reachable, s.Unreachable, s.Skipped)
	return err
}
