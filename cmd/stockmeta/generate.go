package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/batch"
	"github.com/jackzampolin/stockmeta/internal/config"
	"github.com/jackzampolin/stockmeta/internal/export"
	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/inference"
	"github.com/jackzampolin/stockmeta/internal/keywords"
	"github.com/jackzampolin/stockmeta/internal/metadata"
	"github.com/jackzampolin/stockmeta/internal/output"
	"github.com/jackzampolin/stockmeta/internal/providers"
	"github.com/jackzampolin/stockmeta/internal/svcctx"
)

var (
	genAPIKey         string
	genProvider       string
	genModel          string
	genTimeout        time.Duration
	genCSV            string
	genNoCSV          bool
	genSession        string
	genRecursive      bool
	genSkipDuplicates bool
	genSkipTagged     bool
	genTaxonomy       string
)

type generateSummary struct {
	BatchID   string             `json:"batch_id" yaml:"batch_id"`
	Total     int                `json:"total" yaml:"total"`
	Generated int                `json:"generated" yaml:"generated"`
	Pending   int                `json:"pending,omitempty" yaml:"pending,omitempty"`
	Failed    []imageNote        `json:"failed,omitempty" yaml:"failed,omitempty"`
	Skipped   []imageNote        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	CSV       string             `json:"csv,omitempty" yaml:"csv,omitempty"`
	Session   string             `json:"session,omitempty" yaml:"session,omitempty"`
	Results   []*metadata.Result `json:"results,omitempty" yaml:"results,omitempty"`
}

var generateCmd = &cobra.Command{
	Use:   "generate <image-or-dir>...",
	Short: "Generate metadata for a batch of images",
	Long: `Generate microstock metadata for up to 100 images, one at a time.

Images that fail are reported and skipped; the rest are exported to a CSV
(filename,title,description,keywords,category) and saved as a session for
later curation. An overloaded model (HTTP 503) is retried after 1s, 2s and 4s.

Examples:
  stockmeta generate ./photos
  stockmeta generate a.jpg b.png --csv out.csv
  stockmeta generate ./shoot --recursive --skip-duplicates --timeout 2m
  STOCKMETA_API_KEY=xxx stockmeta generate ./photos -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genAPIKey, "api-key", "", "API key (default: config api_key or STOCKMETA_API_KEY)")
	f.StringVar(&genProvider, "provider", "", "vision provider to use (default: config provider)")
	f.StringVar(&genModel, "model", "", "model override (default: provider's configured model)")
	f.DurationVar(&genTimeout, "timeout", 0, "per-image deadline including retries (default: config timeout, none)")
	f.StringVar(&genCSV, "csv", "", "CSV output path (default: ~/.stockmeta/exports/microstock-metadata-DATE.csv)")
	f.BoolVar(&genNoCSV, "no-csv", false, "skip CSV export")
	f.StringVar(&genSession, "session", "", "session output path, .json or .yaml (default: ~/.stockmeta/sessions/BATCH.json)")
	f.BoolVarP(&genRecursive, "recursive", "r", false, "descend into subdirectories")
	f.BoolVar(&genSkipDuplicates, "skip-duplicates", false, "skip near-identical images (perceptual hash)")
	f.BoolVar(&genSkipTagged, "skip-tagged", false, "skip images that already embed a title and keywords")
	f.StringVar(&genTaxonomy, "taxonomy", "", "synonym taxonomy file (YAML or JSON)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cleanup, err := setupServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	svc := svcctx.ServicesFrom(ctx)
	cfg := svc.Config.Get()
	logger := svc.Logger
	if svc.Config.File() != "" {
		svc.Config.WatchConfig()
	}

	providerName := genProvider
	if providerName == "" {
		providerName = cfg.Provider
	}
	credential := strings.TrimSpace(cfg.CredentialFor(providerName, genAPIKey))
	if credential == "" {
		return fmt.Errorf("%w: pass --api-key, set STOCKMETA_API_KEY or configure providers.%s.api_key",
			providers.ErrMissingAPIKey, providerName)
	}
	vision, err := visionClient(ctx, providerName)
	if err != nil {
		return err
	}

	imgs, skipped, err := collectImages(cfg, args, logger)
	if err != nil {
		return err
	}
	summary := &generateSummary{Total: len(imgs), Skipped: skipped}
	if len(imgs) == 0 {
		return errors.New("no images to process")
	}

	client, err := newInferenceClient(cfg, vision, svc)
	if err != nil {
		return err
	}
	timeout := genTimeout
	if timeout == 0 {
		if timeout, err = cfg.ImageTimeout(); err != nil {
			return err
		}
	}

	progress := &progressPrinter{w: cmd.ErrOrStderr()}
	orch := batch.New(batch.Config{
		Generator:   client,
		Observer:    progress,
		Logger:      logger,
		ItemTimeout: timeout,
	})
	results := orch.GenerateBatch(ctx, imgs, credential)

	summary.BatchID = progress.BatchID()
	summary.Generated = len(results)
	summary.Failed = progress.Failed()
	for _, it := range orch.Items() {
		if it.Status == batch.StatusPending {
			summary.Pending++
		}
	}
	if summary.Pending > 0 {
		logger.Warn("batch interrupted", "not_processed", summary.Pending)
	}

	if len(results) > 0 {
		if err := saveOutputs(svc, cfg, providerName, orch.Items(), summary); err != nil {
			return err
		}
	}
	if output.IsStructured() {
		summary.Results = results
		if err := output.Print(summary); err != nil {
			return err
		}
	} else {
		printGenerateSummary(cmd, summary)
	}

	if len(results) == 0 {
		return errors.New("no metadata generated")
	}
	return nil
}

// collectImages loads args and applies the skip filters.
func collectImages(cfg *config.Config, args []string, logger *slog.Logger) ([]*images.Image, []imageNote, error) {
	loader := images.NewLoader(images.LoaderConfig{
		Limits:    cfg.ImageLimits(),
		Recursive: genRecursive,
		Logger:    logger,
	})
	imgs, rejected, err := loader.Load(args)
	if err != nil {
		return nil, nil, err
	}

	var skipped []imageNote
	for _, r := range rejected {
		skipped = append(skipped, imageNote{Name: r.Path, Reason: r.Reason})
	}

	if genSkipTagged || cfg.SkipTagged {
		kept := imgs[:0]
		for _, img := range imgs {
			data, err := img.Bytes()
			if err == nil && images.ReadEmbedded(data, img.MIMEType).HasStockMetadata() {
				logger.Info("skipping image with embedded metadata", "image", img.Name)
				skipped = append(skipped, imageNote{Name: img.Name, Reason: "already has title and keywords"})
				continue
			}
			kept = append(kept, img)
		}
		imgs = kept
	}

	if genSkipDuplicates || cfg.Dedup.Enabled {
		unique, dupes := images.NewDuplicateFilter(cfg.Dedup.Threshold).Filter(imgs)
		for _, img := range imgs {
			if match, ok := dupes[img.ID]; ok {
				logger.Info("skipping duplicate image", "image", img.Name, "duplicate_of", match)
				skipped = append(skipped, imageNote{Name: img.Name, Reason: "duplicate of " + match})
			}
		}
		imgs = unique
	}

	return imgs, skipped, nil
}

func newInferenceClient(cfg *config.Config, vision providers.VisionClient, svc *svcctx.Services) (*inference.Client, error) {
	taxPath := genTaxonomy
	if taxPath == "" {
		taxPath = cfg.TaxonomyFile
	}
	tax := keywords.DefaultTaxonomy()
	if taxPath != "" {
		var err error
		if tax, err = keywords.LoadTaxonomyFile(taxPath); err != nil {
			return nil, err
		}
		svc.Logger.Info("loaded taxonomy", "file", taxPath, "groups", tax.Len())
	}

	delays, err := cfg.RetryDelays()
	if err != nil {
		return nil, err
	}
	policy := inference.DefaultRetryPolicy()
	if delays != nil {
		policy.Delays = delays
	}

	return inference.NewClient(inference.Config{
		Vision:   vision,
		Parser:   metadata.NewParser(keywords.NewNormalizer(tax)),
		Policy:   policy,
		Model:    genModel,
		Recorder: svc.Recorder,
		Logger:   svc.Logger,
	}), nil
}

// saveOutputs writes the session and, unless disabled, the CSV.
func saveOutputs(svc *svcctx.Services, cfg *config.Config, providerName string, items []batch.Item, summary *generateSummary) error {
	model := genModel
	if model == "" {
		if p, ok := cfg.GetProvider(providerName); ok {
			model = p.Model
		}
	}
	recs := export.FromItems(items)
	now := time.Now()

	session := &export.Session{
		BatchID:   summary.BatchID,
		CreatedAt: now.UTC(),
		Provider:  providerName,
		Model:     model,
		Records:   recs,
	}
	summary.Session = genSession
	if summary.Session == "" {
		summary.Session = svc.Home.SessionPath(summary.BatchID)
	}
	if err := export.SaveSession(summary.Session, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if genNoCSV {
		return nil
	}
	summary.CSV = genCSV
	if summary.CSV == "" {
		summary.CSV = svc.Home.ExportPath(export.DefaultCSVName(now))
	}
	if err := export.WriteCSVFile(summary.CSV, recs); err != nil {
		return err
	}
	svc.Logger.Info("exported CSV", "file", summary.CSV, "rows", len(recs))
	return nil
}

func printGenerateSummary(cmd *cobra.Command, s *generateSummary) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nGenerated metadata for %d of %d images\n", s.Generated, s.Total)
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  failed   %s: %s\n", f.Name, f.Reason)
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "  skipped  %s: %s\n", sk.Name, sk.Reason)
	}
	if s.Pending > 0 {
		fmt.Fprintf(w, "  %d images not processed (interrupted)\n", s.Pending)
	}
	if s.CSV != "" {
		fmt.Fprintf(w, "CSV:     %s\n", s.CSV)
	}
	if s.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", s.Session)
	}
}
