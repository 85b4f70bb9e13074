// Command osm2svg converts OpenStreetMap extracts into layered Inkscape SVG
// documents, one layer per feature type.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/osm2svg/internal/adapters/osmfetch"
	"github.com/samirrijal/osm2svg/internal/adapters/osmxml"
	"github.com/samirrijal/osm2svg/internal/adapters/svg"
	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/config"
	"github.com/samirrijal/osm2svg/internal/pkg/geospatial"
	"github.com/samirrijal/osm2svg/internal/pkg/logging"
	"github.com/samirrijal/osm2svg/internal/workflows"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI defines the command-line interface.
var CLI struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"text" enum:"json,text"`

	Convert ConvertCmd `cmd:"" help:"Convert one or more extracts into a single SVG"`
	Fetch   FetchCmd   `cmd:"" help:"Download an extract for a bounding box"`
	Submit  SubmitCmd  `cmd:"" help:"Queue a durable fetch-and-render on the workflow workers"`
	Project ProjectCmd `cmd:"" help:"Print the Mercator projection of a latitude"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ConvertCmd merges its inputs and renders them.
type ConvertCmd struct {
	Inputs []string `arg:"" help:"OSM extracts (.osm, .osm.xz, .osm.bz2)" type:"existingfile"`
	Out    string   `short:"o" help:"Output file, - for stdout (default <out-dir>/<name>.svg)"`
	OutDir string   `name:"out-dir" help:"Directory for the output file" default:"." type:"path"`
	BBox   string   `name:"bbox" help:"lat_min,lat_max,lon_min,lon_max overriding the inputs' bounds"`
	Name   string   `help:"Output name (default derived from the input names)"`
	Indent string   `help:"Indentation of the written document" default:"  "`

	stdout io.Writer
}

func (c *ConvertCmd) Run(ctx context.Context) error {
	stdout := c.stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var box *domain.Box
	if c.BBox != "" {
		b, err := domain.ParseBox(c.BBox)
		if err != nil {
			return err
		}
		box = &b
	}

	dec := osmxml.NewDecoder()
	graphs := make([]*domain.Graph, 0, len(c.Inputs))
	for _, path := range c.Inputs {
		g, err := dec.DecodeFile(path)
		if err != nil {
			return &domain.StageError{Stage: domain.StageDecode, Err: err}
		}
		slog.Debug("decoded", "source", path, "points", len(g.Points), "ways", len(g.Ways))
		graphs = append(graphs, g)
	}

	merged, err := usecases.Merge(graphs)
	if err != nil {
		return &domain.StageError{Stage: domain.StageMerge, Err: err}
	}
	if merged.PointCollisions > 0 || merged.WayCollisions > 0 {
		slog.Warn("duplicate ids across inputs",
			"points", merged.PointCollisions, "ways", merged.WayCollisions)
	}
	if box != nil {
		merged.Graph.Bounds = box
	}

	name := c.Name
	if name == "" {
		name = merged.OutputName
	}

	renders := usecases.NewRenderService(dec, svg.NewEncoder(c.Indent), nil, nil, usecases.RenderOptions{})
	out, err := renders.RenderGraph(ctx, merged.Graph, name)
	if err != nil {
		return err
	}

	if c.Out == "-" {
		_, err := stdout.Write(out.Record.SVG)
		return err
	}
	path := c.Out
	if path == "" {
		path = filepath.Join(c.OutDir, name+".svg")
	}
	if err := svg.WriteFile(path, out.Record.SVG); err != nil {
		return err
	}

	s := out.Record.Summary
	slog.Info("wrote document",
		"path", path,
		"layers", len(s.Layers),
		"width", s.Canvas.Width,
		"height", s.Canvas.Height,
		"width_m", int(s.WidthMeters),
		"height_m", int(s.HeightMeters),
	)
	_, err = fmt.Fprintln(stdout, path)
	return err
}

// FetchCmd downloads an extract, optionally rendering it.
type FetchCmd struct {
	BBox   string   `name:"bbox" required:"" help:"lat_min,lat_max,lon_min,lon_max"`
	Keys   []string `help:"Classifying keys to keep (default from config fetch.keys)"`
	Dir    string   `help:"Download directory (default from config fetch.dir)" type:"path"`
	Render bool     `help:"Render the extract after downloading"`

	stdout io.Writer
}

func (c *FetchCmd) Run(ctx context.Context) error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return err
	}
	stdout := c.stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	box, err := domain.ParseBox(c.BBox)
	if err != nil {
		return err
	}
	keys := c.Keys
	if len(keys) == 0 {
		keys = cfg.Fetch.Keys
	}
	req, err := usecases.NewRequest(box, keys, "")
	if err != nil {
		return err
	}
	dir := c.Dir
	if dir == "" {
		dir = cfg.Fetch.Dir
	}

	path, err := osmfetch.New(cfg.Fetch.BaseURL, dir, cfg.Fetch.Timeout).Fetch(ctx, req.Box, req.Keys)
	if err != nil {
		return err
	}
	if !c.Render {
		_, err := fmt.Fprintln(stdout, path)
		return err
	}

	convert := &ConvertCmd{Inputs: []string{path}, OutDir: dir, BBox: c.BBox, Indent: "  ", stdout: stdout}
	return convert.Run(ctx)
}

// SubmitCmd starts a fetch-and-render workflow.
type SubmitCmd struct {
	BBox string   `name:"bbox" required:"" help:"lat_min,lat_max,lon_min,lon_max"`
	Keys []string `help:"Classifying keys to keep (default from config fetch.keys)"`
	Name string   `help:"Output name"`
	Wait bool     `help:"Wait for the workflow and print its result"`
}

func (c *SubmitCmd) Run(ctx context.Context) error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return err
	}
	box, err := domain.ParseBox(c.BBox)
	if err != nil {
		return err
	}
	keys := c.Keys
	if len(keys) == 0 {
		keys = cfg.Fetch.Keys
	}
	req, err := usecases.NewRequest(box, keys, c.Name)
	if err != nil {
		return err
	}

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer tc.Close()

	run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(*req),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.FetchAndRenderWorkflow, *req)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	slog.Info("workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	if !c.Wait {
		fmt.Println(run.GetID())
		return nil
	}

	var result domain.RenderCompleted
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ProjectCmd prints the projected value of a latitude.
type ProjectCmd struct {
	Lat float64 `arg:"" help:"Latitude in degrees"`

	stdout io.Writer
}

func (c *ProjectCmd) Run() error {
	stdout := c.stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	mer, err := geospatial.ProjectLatitude(c.Lat)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, strconv.FormatFloat(mer, 'f', -1, 64))
	return err
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("osm2svg", version)
	return nil
}

// exitCode separates bad input from everything else for scripts.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsInputError(err):
		return 2
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("osm2svg"),
		kong.Description("Convert OpenStreetMap extracts into layered Inkscape SVG"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	logging.SetupWriter(os.Stderr, CLI.LogLevel, CLI.LogFormat)

	if err := kctx.Run(); err != nil {
		slog.Error("failed", "command", kctx.Command(), "stage", domain.StageOf(err), "error", err)
		stop()
		os.Exit(exitCode(err))
	}
}
