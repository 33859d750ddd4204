package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/martinsuchenak/camdash/internal/config"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/metrics"
	"github.com/martinsuchenak/camdash/internal/model"
	"github.com/martinsuchenak/camdash/internal/source"
	"github.com/paularlott/cli"
	"golang.org/x/term"
)

// ErrNoSource is returned when neither a file nor a sheet is given
var ErrNoSource = errors.New("either --file or --sheet-url is required")

const defaultWidth = 120

// OpenSource picks the inventory source for a one-shot command. A local
// file wins over the configured sheet.
func OpenSource(ctx context.Context, cfg *config.Config, file string) (source.Source, error) {
	if file != "" {
		return source.NewFileSource("file", file)
	}
	if cfg.HasSheet() {
		return source.NewSheetSource(ctx, cfg.SheetURL, cfg.SheetGID, cfg.CredentialsFile)
	}
	return nil, ErrNoSource
}

// LoadSnapshot opens and reads the source named by the command's flags
func LoadSnapshot(ctx context.Context, cmd *cli.Command) (*model.Snapshot, *config.Config, error) {
	cfg := config.Load()
	cfg.ApplySourceFlags(cmd)

	src, err := OpenSource(ctx, cfg, cmd.GetString("file"))
	if err != nil {
		return nil, nil, err
	}

	snap, err := source.Load(ctx, src, time.Now())
	if err != nil {
		return nil, nil, err
	}
	log.Debug("Inventory loaded", "source", snap.Source, "devices", len(snap.Devices), "missing", len(snap.Missing))
	return snap, cfg, nil
}

// Filter validates the --location and --area flags
func Filter(location, area string) (model.LocationFilter, error) {
	f, err := metrics.ParseLocationFilter(location, area)
	if err != nil {
		return f, fmt.Errorf("--location: %w", err)
	}
	return f, nil
}

// FileFlag selects a local spreadsheet instead of the sheet
func FileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Local .xlsx or .csv inventory file",
	}
}

func Command() *cli.Command {
	flags := append(config.SourceFlags(),
		FileFlag(),
		&cli.StringFlag{
			Name:  "location",
			Usage: "Restrict the view to plant (1F) or ho",
		},
		&cli.StringFlag{
			Name:  "area",
			Usage: "Plant area to narrow the view to",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the full report as JSON",
		},
	)

	return &cli.Command{
		Name:        "report",
		Usage:       "Print the inventory report",
		Description: "Read the inventory from a file or the Google Sheet and print the dashboard figures",
		Flags:       flags,
		Run: func(ctx context.Context, cmd *cli.Command) error {
			filter, err := Filter(cmd.GetString("location"), cmd.GetString("area"))
			if err != nil {
				return err
			}

			snap, cfg, err := LoadSnapshot(ctx, cmd)
			if err != nil {
				return err
			}

			report := metrics.BuildReport(snap.Devices, time.Now(), metrics.Options{
				Source:     snap.Source,
				Filter:     filter,
				WindowDays: cfg.WindowDays,
				Missing:    snap.Missing,
			})

			if cmd.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			return Render(os.Stdout, report, terminalWidth())
		},
	}
}

// terminalWidth returns the width of stdout, or a default when it is not a
// terminal
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w < 40 {
		return defaultWidth
	}
	return w
}

// Render writes the report as plain text. Device rows are cut to width.
func Render(out io.Writer, r *model.Report, width int) error {
	w := &clipWriter{out: out, width: width}

	fmt.Fprintf(w, "Inventory report: %s (%s)\n", r.Source, r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.Filter.Main != "" {
		fmt.Fprintf(w, "View: %s %s\n", r.Filter.Main, r.Filter.Area)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}

	k := r.KPIs
	fmt.Fprintf(w, "\nDevices %d   Active %d (%.1f%%)   Covered %d (%.1f%%)",
		k.Total, k.Active, k.ActivePercent, k.Covered, k.CoveredPercent)
	if k.TopLocation != "" {
		fmt.Fprintf(w, "   Top location %s (%d)", k.TopLocation, k.TopLocationCount)
	}
	fmt.Fprintf(w, "\nInventory %d   Plant %d   HO %d   Discard %d (%.1f%%)   Repair %d (%.1f%%)\n",
		r.InventoryTotal, r.Departments.Plant, r.Departments.HO,
		r.NonActive.Discard, r.NonActive.DiscardPercent, r.NonActive.Repair, r.NonActive.RepairPercent)

	section(w, "Status")
	counts(w, r.Status)
	section(w, "Locations")
	counts(w, r.Locations)
	section(w, "Coverage")
	fmt.Fprintf(w, "AMC %d   Warranty %d   None %d\n", r.Coverage.UnderAMC, r.Coverage.UnderWarranty, r.Coverage.NoCoverage)

	section(w, "Age distribution")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range r.AgeDistribution {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", b.Label, b.Count, b.Percent)
	}
	tw.Flush()

	if len(r.AverageAgeByType) > 0 {
		section(w, "Average age by type")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, t := range r.AverageAgeByType {
			fmt.Fprintf(tw, "%s\t%.1f years\t(%d)\n", t.Type, t.AverageAge, t.WithAgeData)
		}
		tw.Flush()
	}

	group(w, "High alert", r.HighAlert)
	group(w, "Mild alert", r.MildAlert)
	group(w, "Firmware pending", r.Firmware)

	section(w, fmt.Sprintf("Changed in the last %d days: %d", r.Recent.WindowDays, len(r.Recent.Devices)))
	devices(w, r.Recent.Devices)

	return w.err
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func counts(w io.Writer, cs []model.Count) {
	if len(cs) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", c.Key, c.Count, c.Percent)
	}
	tw.Flush()
}

func group(w io.Writer, title string, g model.DeviceGroup) {
	section(w, fmt.Sprintf("%s: %d (1F %d, HO %d)", title, g.Count, g.Split.Plant, g.Split.HO))
	devices(w, g.Devices)
}

func devices(w io.Writer, ds []model.EnrichedDevice) {
	if len(ds) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tNAME\tMODEL\tLOCATION\tAREA\tSTATUS\tAGE\tFIRMWARE")
	for _, d := range ds {
		age := ""
		if d.AgeYears != nil {
			age = fmt.Sprintf("%.1f", *d.AgeYears)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Row, d.Name, d.Model, d.Location, d.Area, d.Status, age, d.FirmwareStatus)
	}
	tw.Flush()
}

// clipWriter cuts every line to width runes and keeps the first error
type clipWriter struct {
	out   io.Writer
	width int
	col   int
	err   error
}

func (c *clipWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	var b strings.Builder
	for _, r := range string(p) {
		if r == '\n' {
			c.col = 0
			b.WriteRune(r)
			continue
		}
		if c.width > 0 && c.col >= c.width {
			continue
		}
		c.col++
		b.WriteRune(r)
	}
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		c.err = err
		return 0, err
	}
	return len(p), nil
}
