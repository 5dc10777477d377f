package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PaletteState is a step of the two-pass palette encode.
type PaletteState int

const (
	StateGeneratePalette PaletteState = iota
	StateApplyPalette
	StateDone
	StateFailed
)

func (s PaletteState) String() string {
	switch s {
	case StateGeneratePalette:
		return "generate_palette"
	case StateApplyPalette:
		return "apply_palette"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// DefaultPaletteUse is ordered Bayer dithering limited to changed regions.
	DefaultPaletteUse = "paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle"
)

// PaletteJob describes a two-pass GIF encode: pass one builds an optimal
// 256 color palette, pass two maps the input onto it.
type PaletteJob struct {
	// InputArgs select the input, e.g. {"-i", "in.mp4"}.
	InputArgs []string
	// Filters are applied before palette generation and use, e.g.
	// "fps=15,scale=640:-1:flags=lanczos". May be empty.
	Filters string
	// PaletteGen is the palettegen filter, "palettegen" when empty.
	PaletteGen string
	// PaletteUse is the paletteuse filter, DefaultPaletteUse when empty.
	PaletteUse  string
	PalettePath string
	OutputPath  string
}

// PalettePipeline runs a PaletteJob as a state machine. The palette file
// never outlives the pipeline; the output is removed unless the pipeline
// reaches StateDone.
type PalettePipeline struct {
	proc  *Processor
	job   PaletteJob
	state PaletteState
	err   error
	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to PaletteState)
}

// NewPalettePipeline creates a pipeline in StateGeneratePalette.
func (p *Processor) NewPalettePipeline(job PaletteJob) *PalettePipeline {
	if job.PaletteGen == "" {
		job.PaletteGen = "palettegen"
	}
	if job.PaletteUse == "" {
		job.PaletteUse = DefaultPaletteUse
	}
	if job.PalettePath == "" {
		job.PalettePath = strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + "_palette.png"
	}
	return &PalettePipeline{proc: p, job: job, state: StateGeneratePalette}
}

// State returns the current state.
func (pp *PalettePipeline) State() PaletteState {
	return pp.state
}

// Err returns the error that moved the pipeline to StateFailed.
func (pp *PalettePipeline) Err() error {
	return pp.err
}

// Run drives the pipeline to StateDone or StateFailed.
func (pp *PalettePipeline) Run(ctx context.Context) error {
	for {
		switch pp.state {
		case StateGeneratePalette:
			if err := pp.generatePalette(ctx); err != nil {
				pp.fail(err)
				continue
			}
			pp.transition(StateApplyPalette)

		case StateApplyPalette:
			if err := pp.applyPalette(ctx); err != nil {
				pp.fail(err)
				continue
			}
			CleanupTempFiles(pp.job.PalettePath)
			pp.transition(StateDone)

		case StateDone:
			return nil

		case StateFailed:
			return pp.err
		}
	}
}

func (pp *PalettePipeline) generatePalette(ctx context.Context) error {
	vf := pp.job.PaletteGen
	if pp.job.Filters != "" {
		vf = pp.job.Filters + "," + pp.job.PaletteGen
	}
	args := append(append([]string{}, pp.job.InputArgs...),
		"-vf", vf,
		"-y", pp.job.PalettePath,
	)
	if err := pp.proc.run(ctx, "palettegen", args...); err != nil {
		return err
	}
	if !nonEmpty(pp.job.PalettePath) {
		return fmt.Errorf("ffmpeg palettegen: no palette written")
	}
	return nil
}

func (pp *PalettePipeline) applyPalette(ctx context.Context) error {
	graph := "[0:v][1:v] " + pp.job.PaletteUse
	if pp.job.Filters != "" {
		graph = pp.job.Filters + " [x]; [x][1:v] " + pp.job.PaletteUse
	}
	args := append(append([]string{}, pp.job.InputArgs...),
		"-i", pp.job.PalettePath,
		"-lavfi", graph,
		"-y", pp.job.OutputPath,
	)
	if err := pp.proc.run(ctx, "paletteuse", args...); err != nil {
		return err
	}
	if !nonEmpty(pp.job.OutputPath) {
		return fmt.Errorf("ffmpeg paletteuse: no output written")
	}
	return nil
}

func (pp *PalettePipeline) fail(err error) {
	pp.err = err
	CleanupTempFiles(pp.job.PalettePath, pp.job.OutputPath)
	pp.transition(StateFailed)
}

func (pp *PalettePipeline) transition(to PaletteState) {
	from := pp.state
	pp.state = to
	if pp.OnTransition != nil {
		pp.OnTransition(from, to)
	}
}

// VideoOptions configures VideoToGIF.
type VideoOptions struct {
	FPS   int
	Width int
}

// VideoFilters returns the fps and Lanczos scaling filter chain.
func VideoFilters(fps, width int) string {
	return fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width)
}

// VideoToGIF encodes a video file to a GIF with a generated palette.
func (p *Processor) VideoToGIF(ctx context.Context, videoPath, outputPath string, opts VideoOptions) error {
	return p.NewPalettePipeline(PaletteJob{
		InputArgs:  []string{"-i", videoPath},
		Filters:    VideoFilters(opts.FPS, opts.Width),
		OutputPath: outputPath,
	}).Run(ctx)
}

// ImageSequenceToGIF encodes a numbered image sequence, e.g.
// "dir/seq_%04d.png", to a GIF at fps frames per second.
func (p *Processor) ImageSequenceToGIF(ctx context.Context, pattern, outputPath string, fps int) error {
	return p.NewPalettePipeline(PaletteJob{
		InputArgs:  []string{"-f", "image2", "-framerate", strconv.Itoa(fps), "-i", pattern},
		PaletteGen: "palettegen=stats_mode=full",
		PaletteUse: "paletteuse=dither=bayer:bayer_scale=5",
		OutputPath: outputPath,
	}).Run(ctx)
}

func nonEmpty(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Size() > 0
}
