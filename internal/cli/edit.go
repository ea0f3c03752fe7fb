package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/script"
	"github.com/matzehuels/gradlab/pkg/session"
)

type editOptions struct {
	imageID       string
	script        string
	out           string
	layersDir     string
	mode          string
	noReconstruct bool
}

// editCommand creates the edit command.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "edit [FILE]",
		Short: "Replay a stroke script on an image and reconstruct it",
		Long: `Load an image (uploading FILE, or reusing --image-id), replay the strokes of a
TOML script onto its dx/dy edit layers and ask the lab service to reconstruct
the edited image.

Example script:

  [container]
  width = 800
  height = 600

  [[stroke]]
  tab = "dx"
  tool = "dx"
  radius = 12
  strength = 0.4
  points = [[400, 300], [430, 300]]`,
		Example: `  gradlab edit photo.png --script strokes.toml --out edited.png
  gradlab edit --image-id 3f2a --script strokes.toml --layers ./layers --no-reconstruct`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return c.runEdit(cmd.Context(), file, opts)
		},
	}

	cmd.Flags().StringVar(&opts.imageID, "image-id", "", "edit an already uploaded image")
	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "stroke script (TOML)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the reconstructed image to this file")
	cmd.Flags().StringVar(&opts.layersDir, "layers", "", "write edit layers and composite frames to this directory")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "reconstruction mode: full or patch")
	cmd.Flags().BoolVar(&opts.noReconstruct, "no-reconstruct", false, "stop after replaying the strokes")
	_ = cmd.MarkFlagRequired("script")
	registerEditCompletions(cmd)

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, file string, opts editOptions) error {
	logger := loggerFromContext(ctx)

	if (file == "") == (opts.imageID == "") {
		return errors.New(errors.ErrCodeInvalidInput, "give either FILE or --image-id")
	}
	if opts.noReconstruct && opts.out != "" {
		return errors.New(errors.ErrCodeInvalidInput, "--out needs a reconstruction")
	}

	sc, err := script.Load(opts.script)
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	for _, m := range []string{sc.Mode, opts.mode} {
		if m != "" {
			cfg.API.Mode = m
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, closeClient, err := c.newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	sess := session.New(client, c.sessionConfig(cfg))
	if _, err := spin(ctx, "Loading image",
		func() (string, error) {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", file)
				}
				up, err := sess.Upload(ctx, filepath.Base(file), data)
				if err != nil {
					return "", err
				}
				return up.ImageID, nil
			}
			return opts.imageID, sess.LoadImage(ctx, opts.imageID)
		},
		func(id string) string {
			snap := sess.Snapshot()
			return fmt.Sprintf("Loaded %s (%d×%d)", id, snap.Width, snap.Height)
		},
	); err != nil {
		return err
	}

	prog := newProgress(logger)
	rep, err := sc.Run(ctx, sess, cfg.Display.Width, cfg.Display.Height)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Replayed %d strokes, %d points", rep.Strokes, rep.Points))
	for _, ch := range layer.Channels {
		if l, ok := sess.Layer(ch); ok {
			printDetail("%s", formatLayerStats(ch, layer.Summarize(l)))
		}
	}

	if opts.layersDir != "" {
		paths, err := exportLayers(sess, opts.layersDir)
		if err != nil {
			return err
		}
		printSuccess("Exported %d images", len(paths))
		for _, p := range paths {
			printFile(p)
		}
	}

	if opts.noReconstruct {
		return nil
	}

	res, err := spin(ctx, "Reconstructing",
		func() (*session.Result, error) { return sess.Reconstruct(ctx) },
		func(*session.Result) string { return "Reconstructed " + sess.Snapshot().ImageID },
	)
	if err != nil {
		return err
	}
	printKeyValue("Result", StyleLink.Render(client.Resolve(res.URL)))

	if opts.out != "" {
		data, err := client.FetchBytes(ctx, res.URL, true)
		if err != nil {
			return err
		}
		if err := writeFile(opts.out, data); err != nil {
			return err
		}
		printFile(opts.out)
	}
	return nil
}

// exportLayers writes the committed edit layers as <ch>_layer.png and every
// available composite as <tab>_frame.png into dir.
func exportLayers(sess *session.Session, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}

	var paths []string
	for _, ch := range layer.Channels {
		l, ok := sess.Layer(ch)
		if !ok {
			continue
		}
		data, err := layer.Encode(l)
		if err != nil {
			return paths, err
		}
		p := filepath.Join(dir, ch.String()+"_layer.png")
		if err := writeFile(p, data); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	for _, tab := range []layer.Channel{layer.DX, layer.DY, layer.Magnitude} {
		img, ok := sess.Frame(tab)
		if !ok {
			continue
		}
		p := filepath.Join(dir, tab.String()+"_frame.png")
		f, err := os.Create(p)
		if err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", p)
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}
