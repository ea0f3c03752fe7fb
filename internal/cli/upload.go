package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/integrations/lab"
)

// uploadCommand creates the upload command.
func (c *CLI) uploadCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image and compute its gradient maps",
		Long: `Upload an image to the lab service and print the image ID together with
the dx, dy and magnitude rasters the service computed for it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, closeClient, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			prog := newProgress(logger)
			up, err := spin(ctx, "Uploading "+filepath.Base(args[0]),
				func() (*lab.Upload, error) { return client.UploadFile(ctx, args[0]) },
				func(u *lab.Upload) string { return fmt.Sprintf("Uploaded %s (%d×%d)", u.ImageID, u.Width, u.Height) },
			)
			if err != nil {
				return err
			}
			g, err := client.Gradients(ctx, up.ImageID, false)
			if err != nil {
				return err
			}
			prog.done("Gradients ready for " + up.ImageID)

			if asJSON {
				return printJSON(g)
			}

			printKeyValue("Image", up.ImageID)
			printKeyValue("Size", fmt.Sprintf("%d×%d", g.Width, g.Height))
			printKeyValue("dx", StyleLink.Render(client.Resolve(g.DxURL)))
			printKeyValue("dy", StyleLink.Render(client.Resolve(g.DyURL)))
			if g.MagnitudeURL != "" {
				printKeyValue("magnitude", StyleLink.Render(client.Resolve(g.MagnitudeURL)))
			}
			fmt.Println()
			printNextStep("Edit it", fmt.Sprintf("%s edit --image-id %s --script strokes.toml", appName, up.ImageID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the gradient descriptor as JSON")
	cmd.ValidArgsFunction = completeImages
	return cmd
}
