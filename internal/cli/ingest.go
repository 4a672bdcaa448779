package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"semkb/internal/domain"
)

var (
	ingestIndex    string
	ingestPatterns []string
	ingestManifest string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [PATH]",
	Short: "Ingest documents into a collection",
	Long: `Ingest a file or directory of documents into a collection.

With --manifest, PATH is omitted and documents are fetched from an
llms.txt manifest URL instead.

Examples:
  semkb ingest ./docs --index docs
  semkb ingest README.md --index docs
  semkb ingest --manifest https://example.com/llms.txt --index docs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestIndex, "index", "c", "", "target collection (required)")
	ingestCmd.Flags().StringSliceVar(&ingestPatterns, "patterns", nil, "file patterns (default from config)")
	ingestCmd.Flags().StringVar(&ingestManifest, "manifest", "", "llms.txt manifest URL")
	ingestCmd.MarkFlagRequired("index")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if ingestManifest == "" && len(args) == 0 {
		return fmt.Errorf("either PATH or --manifest is required")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	models, err := buildModels(cfg)
	if err != nil {
		return err
	}
	if err := models.Open(cmd.Context()); err != nil {
		return fmt.Errorf("model startup failed: %w", err)
	}
	defer models.Close()

	ing := newIngestor(cfg, st, models)

	if ingestManifest != "" {
		fmt.Printf("Fetching manifest %s...\n", ingestManifest)
		report, err := ing.IngestManifest(cmd.Context(), ingestIndex, ingestManifest)
		if err != nil {
			return err
		}
		printBatchReport(report)
		return nil
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
		}
		return err
	}

	if !info.IsDir() {
		report, err := ing.IngestFile(cmd.Context(), ingestIndex, path)
		if err != nil {
			return err
		}
		fmt.Printf("Encoded %s: %d chunks\n", path, report.ChunkCount)
		return nil
	}

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex

	progress := func(done, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	report, err := ing.IngestDirectory(cmd.Context(), ingestIndex, path, ingestPatterns, progress)
	if err != nil {
		return err
	}
	printBatchReport(report)
	return nil
}

func printBatchReport(report *domain.BatchReport) {
	fmt.Printf("Processed %d documents, %d failed\n", report.Processed, report.Failed)
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Printf("  failed: %s: %v\n", o.Path, o.Err)
		}
	}
}
