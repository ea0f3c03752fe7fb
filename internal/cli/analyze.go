package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/analyzer"
	"github.com/matzehuels/gradlab/pkg/errors"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze IMAGE",
		Short: "Score an image's gradient statistics",
		Long: `Score an image with the lab service's gradient fingerprint metrics.
IMAGE is a file to upload or the ID of an image uploaded earlier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in, err := inputFor(args[0], "")
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, closeClient, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			a := analyzer.New(client, loggerFromContext(ctx))
			side, err := spin(ctx, "Analyzing "+args[0],
				func() (*analyzer.Side, error) { return a.Analyze(ctx, in) },
				func(s *analyzer.Side) string { return fmt.Sprintf("Analyzed %s (%d×%d)", s.ImageID, s.Width, s.Height) },
			)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(side)
			}
			fmt.Println(sideTable(side))
			if side.HeatmapURL != "" {
				printKeyValue("Heatmap", StyleLink.Render(client.Resolve(side.HeatmapURL)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	cmd.ValidArgsFunction = completeImages
	return cmd
}

// compareCommand creates the compare command.
func (c *CLI) compareCommand() *cobra.Command {
	var (
		asJSON      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "compare IMAGE_A IMAGE_B",
		Short: "Compare the gradient statistics of two images",
		Long: `Analyze two images concurrently and show their scores side by side with the
signed difference B−A per metric. Each IMAGE is a file to upload or the ID of
an image uploaded earlier.`,
		Example: `  gradlab compare real.jpg generated.png
  gradlab compare real.jpg generated.png -i`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inA, err := inputFor(args[0], "A")
			if err != nil {
				return err
			}
			inB, err := inputFor(args[1], "B")
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, closeClient, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			for _, s := range []*analyzer.Input{&inA, &inB} {
				if s.Filename != "" {
					s.Label = s.Label + " · " + s.Filename
				}
			}

			a := analyzer.New(client, loggerFromContext(ctx))
			cmp, err := spin(ctx, "Comparing",
				func() (*analyzer.Comparison, error) { return a.Compare(ctx, inA, inB) },
				func(*analyzer.Comparison) string { return "Compared " + args[0] + " and " + args[1] },
			)
			if err != nil {
				return err
			}

			switch {
			case asJSON:
				return printJSON(cmp)
			case interactive:
				_, err := tea.NewProgram(NewCompareModel(cmp), tea.WithContext(ctx)).Run()
				return err
			}
			fmt.Println(compareTable(cmp, -1))
			for _, s := range []analyzer.Side{cmp.A, cmp.B} {
				if s.HeatmapURL != "" {
					printKeyValue("Heatmap "+s.Label, StyleLink.Render(client.Resolve(s.HeatmapURL)))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the comparison as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the comparison interactively")
	cmd.ValidArgsFunction = completeImages
	return cmd
}

// inputFor treats arg as a file if one exists at that path, else as an
// image ID.
func inputFor(arg, label string) (analyzer.Input, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return analyzer.Input{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", arg)
		}
		return analyzer.Input{Label: label, Filename: filepath.Base(arg), Data: data}, nil
	}
	if err := errors.ValidateImageID(arg); err != nil {
		return analyzer.Input{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "%q is neither a file nor an image ID", arg)
	}
	return analyzer.Input{Label: label, ImageID: arg}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
