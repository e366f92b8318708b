package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/go-drift/recompose/cmd/recompose/internal/scenario"
	"github.com/go-drift/recompose/pkg/config"
	"github.com/go-drift/recompose/pkg/core"
	"github.com/go-drift/recompose/pkg/errors"
	"github.com/go-drift/recompose/pkg/logging"
	"github.com/go-drift/recompose/pkg/telemetry"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <scenario.yaml>",
		Short: "Replay a scenario and print every tick",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrace,
	}
	cmd.Flags().String("format", "text", "Output format: text or json")
	cmd.Flags().Bool("metrics", false, "Print the Prometheus metrics gathered during the run")
	return cmd
}

// traceReport is the json output of trace.
type traceReport struct {
	Scenario string             `json:"scenario"`
	Result   *scenario.Result   `json:"result"`
	Timeline telemetry.Timeline `json:"timeline"`
	Error    string             `json:"error,omitempty"`
}

func runTrace(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	format, _ := cmd.Flags().GetString("format")
	withMetrics, _ := cmd.Flags().GetBool("metrics")
	if format != "text" && format != "json" {
		return fmt.Errorf("--format: unknown format %q (want text or json)", format)
	}

	resolved, err := config.Resolve(config.FindRoot(dir))
	if err != nil {
		return err
	}
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), resolved.LogLevel, resolved.LogFormat)
	errors.SetHandler(&errors.LogHandler{Logger: logger})
	defer errors.SetHandler(nil)

	trace := telemetry.NewTraceBuffer(resolved.TraceSamples, resolved.TraceThreshold)
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusObserver(reg, resolved.MetricsNamespace, resolved.TraceThreshold)

	opts := append(resolved.SchedulerOptions(trace, metrics), core.WithLogger(logger))
	result, runErr := scenario.Run(sc, opts...)

	out := cmd.OutOrStdout()
	if format == "json" {
		report := traceReport{
			Scenario: sc.Name,
			Result:   result,
			Timeline: trace.Timeline(),
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printText(out, sc, result, trace.Timeline())
	}

	if withMetrics {
		if err := printMetrics(out, reg); err != nil {
			return err
		}
	}
	return runErr
}

func printText(w io.Writer, sc *scenario.Scenario, result *scenario.Result, timeline telemetry.Timeline) {
	name := sc.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "scenario %s: %d steps (run %s)\n", name, len(sc.Steps), result.RunID)

	for _, f := range result.Frames {
		fmt.Fprintf(w, "\n== tick %d, %s ==\n", f.Tick, stepLabel(f.Step, len(sc.Steps)))
		fmt.Fprint(w, f.Tree)
		for _, e := range f.Events {
			fmt.Fprintf(w, "  > %s\n", e)
		}
		c := f.Stats.Counts
		fmt.Fprintf(w, "  nodes=%d composed=%d systems=%d applied=%d dropped=%d decomposed=%d pruned=%d\n",
			c.Nodes, c.Composed, c.SystemsRun, c.MutationsApplied, c.MutationsDropped, c.Decomposed, c.Pruned)
	}

	if len(result.Teardown) > 0 {
		fmt.Fprintln(w, "\n== teardown ==")
		for _, e := range result.Teardown {
			fmt.Fprintf(w, "  > %s\n", e)
		}
	}
	if len(result.Leaked) > 0 {
		fmt.Fprintf(w, "\nleaked entities: %s\n", strings.Join(result.Leaked, ", "))
	}
	fmt.Fprintf(w, "\n%d ticks, %d slower than %.2fms\n", len(timeline.Samples), timeline.SlowTicks, timeline.ThresholdMs)
}

func stepLabel(step, steps int) string {
	switch {
	case step < 0:
		return "mount"
	case step >= steps:
		return "settle"
	default:
		return fmt.Sprintf("step %d", step+1)
	}
}

// printMetrics writes counters and gauges as "name{labels} value" lines.
// Histograms are reduced to their sample count.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w, "\n== metrics ==")
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := labelString(m.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s%s %g\n", family.GetName(), labels, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "%s%s %g\n", family.GetName(), labels, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				fmt.Fprintf(w, "%s_count%s %d\n", family.GetName(), labels, m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
