// Command irtable inspects the IR command tables of a climate config.
//
// For every device it prints the codes the table declares together with the
// depth each lookup reached and the capability set that would be reported.
// With -gaps it also walks the advertised operation x fan x temperature grid
// and lists the states that have no code.
//
// Usage:
//
//	irtable -config configs/climate.yaml [-device living-ac] [-gaps] [-no-color]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/nerrad567/gray-logic-irclimate/internal/bridges/ir"
	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
)

var (
	headerPrintf = color.New(color.FgCyan, color.Bold).SprintfFunc()
	codePrintf   = color.New(color.FgGreen).SprintfFunc()
	missPrintf   = color.New(color.FgRed).SprintfFunc()
	dimPrintf    = color.New(color.Faint).SprintfFunc()
)

const anyValue = "*"

type options struct {
	configPath string
	deviceID   string
	gaps       bool
	noColor    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.noColor {
		color.NoColor = true
	}

	cfg, err := ir.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading climate config: %w", err)
	}

	found := false
	for _, d := range cfg.Devices {
		if opts.deviceID != "" && d.ID != opts.deviceID {
			continue
		}
		found = true

		cc := cfg.ClimateConfig(d)
		cc.ApplyDefaults()
		if err := renderDevice(out, cc, opts.gaps); err != nil {
			return err
		}
	}

	if !found {
		return fmt.Errorf("device %q not found in %s", opts.deviceID, opts.configPath)
	}
	return nil
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("irtable", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "configs/climate.yaml", "path to the climate config")
	fs.StringVar(&opts.deviceID, "device", "", "only show this device")
	fs.BoolVar(&opts.gaps, "gaps", false, "list advertised states with no code")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colour output")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

// row is one declared table entry.
type row struct {
	operation string
	fan       string
	temp      string
	state     climate.State
}

func renderDevice(out io.Writer, cc climate.Config, gaps bool) error {
	fmt.Fprintln(out, headerPrintf("%s (%s)", cc.ID, cc.Remote))
	fmt.Fprintf(out, "  units %s, range %g-%g, step %g\n\n",
		string(cc.Unit), cc.MinTemp, cc.MaxTemp, cc.TargetTempStep)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  OPERATION\tFAN\tTEMP\tDEPTH\tCODE\tFEATURES")

	table := cc.Table
	off, _ := climate.Resolve(table, climate.State{On: false})
	fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
		"off", anyValue, anyValue, dimPrintf("-"), codePrintf("%s", off.Code), off.Enabled)

	away, err := climate.Resolve(table, climate.State{On: true, Away: true})
	if err != nil {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			"away", anyValue, anyValue, dimPrintf("-"), missPrintf("no idle code"), dimPrintf("-"))
	} else {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			"away", anyValue, anyValue, dimPrintf("-"), codePrintf("%s", away.Code), away.Enabled)
	}

	for _, r := range declaredRows(cc) {
		res, err := climate.Resolve(table, r.state)
		if err != nil {
			return fmt.Errorf("device %s: declared entry %s/%s/%s did not resolve: %w",
				cc.ID, r.operation, r.fan, r.temp, err)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			r.operation, r.fan, r.temp, res.Depth, codePrintf("%s", res.Code), res.Enabled)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	if gaps {
		renderGaps(out, cc)
	}
	fmt.Fprintln(out)
	return nil
}

// declaredRows enumerates every code in the table, walking each branch down
// to its leaves.
func declaredRows(cc climate.Config) []row {
	var rows []row
	for _, opName := range cc.Table.Operations() {
		op, _ := cc.Table.Operation(opName)
		if op.IsLeaf() {
			rows = append(rows, row{
				operation: opName, fan: anyValue, temp: anyValue,
				state: onState(opName, cc.FanMode, cc.TargetTemp),
			})
			continue
		}

		for _, fanName := range op.Fans() {
			fan, _ := op.Fan(fanName)
			if fan.IsLeaf() {
				rows = append(rows, row{
					operation: opName, fan: fanName, temp: anyValue,
					state: onState(opName, fanName, cc.TargetTemp),
				})
				continue
			}
			for _, t := range fan.Temperatures() {
				rows = append(rows, row{
					operation: opName, fan: fanName, temp: strconv.Itoa(t),
					state: onState(opName, fanName, float64(t)),
				})
			}
		}
	}
	return rows
}

func onState(operation, fan string, target float64) climate.State {
	return climate.State{
		On:                true,
		OperationMode:     operation,
		FanMode:           fan,
		TargetTemperature: target,
	}
}

// renderGaps lists, per advertised operation and fan, the whole-degree
// targets in range that resolve to no code.
func renderGaps(out io.Writer, cc climate.Config) {
	fmt.Fprintln(out)
	total := 0
	for _, op := range cc.OperationList {
		for _, fan := range cc.FanList {
			var missing []string
			var level string
			for t := int(cc.MinTemp); t <= int(cc.MaxTemp); t++ {
				_, err := climate.Resolve(cc.Table, onState(op, fan, float64(t)))
				var miss *climate.LookupError
				if errors.As(err, &miss) {
					missing = append(missing, strconv.Itoa(t))
					level = miss.Level.String()
				}
			}
			if len(missing) == 0 {
				continue
			}
			total += len(missing)
			fmt.Fprintf(out, "  %s %s/%s: %s\n",
				missPrintf("missing %s", level), op, fan, strings.Join(missing, ","))
		}
	}
	if total == 0 {
		fmt.Fprintln(out, codePrintf("  no gaps"))
	}
}
