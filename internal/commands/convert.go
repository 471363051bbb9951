package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/normalize"
)

var convertOutputFlag string

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert a PDF to markdown",
	Long: `Upload a PDF to the backend converter and print (or save) the extracted
markdown. Embedded images are extracted server-side; their names are listed
after conversion.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputFlag, "output", "o", "", "Save the markdown to a file")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot read %s: %w", args[0], err)
	}

	cfg := loadedConfig()

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	spin := newSpinner("Converting")
	spin.start()

	payload, err := client.ConvertPDF(context.Background(), args[0])
	if err != nil {
		spin.stopWithError()
		return err
	}

	markdown, err := normalize.Conversion(payload)
	if err != nil {
		spin.stopWithError()
		return err
	}
	spin.stopWithSuccess("Converted")

	if convertOutputFlag != "" {
		if err := os.WriteFile(convertOutputFlag, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to save markdown: %w", err)
		}
		fmt.Printf("Saved to %s\n", convertOutputFlag)
	} else {
		fmt.Println(markdown)
	}

	if images := normalize.ConversionImages(payload); len(images) > 0 {
		fmt.Fprintf(os.Stderr, "\nExtracted %d image(s):\n", len(images))
		for _, name := range images {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
	}
	return nil
}
