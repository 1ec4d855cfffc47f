package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"floordesign/config"
	"floordesign/database"
	"floordesign/logger"
	"floordesign/media"
	"floordesign/models"
	"floordesign/services"
	"floordesign/upload"
)

// cliCreator is recorded as created_by for products ingested from the CLI.
const cliCreator = "floorctl"

type ingestOptions struct {
	description string
	categories  []string
	price       string
	strict      bool
	cleanup     bool
	plain       bool
}

func newIngestCmd(configPath *string) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Upload a local product folder and register the product",
		Long: `Walks a product folder laid out as

  <Product>/<principal image>
  <Product>/<Motif>/<color>.png

uploads every image to the configured media store and registers the product.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cfg, args[0], opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.description, "description", "", "product description")
	flags.StringSliceVar(&opts.categories, "category", nil, "category, repeatable (INTEMPOREL, GRAPHIQUES, PRESTIGE, ETHINIQUE, BAGUETTES, INSPIRATION)")
	flags.StringVar(&opts.price, "price", "", "price, e.g. 49.99")
	flags.BoolVar(&opts.strict, "strict", false, "reject files outside the product folder")
	flags.BoolVar(&opts.cleanup, "cleanup", false, "delete uploaded images if the ingest fails")
	flags.BoolVar(&opts.plain, "plain", false, "print progress lines instead of the progress bar")
	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config, dir string, opts ingestOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logCfg := cfg.Log.LoggerConfig()
	if !opts.plain {
		// keep the terminal for the progress bar; the log file still gets everything
		logCfg.Console = io.Discard
	}
	if err := logger.Initialize(logCfg); err != nil {
		return err
	}

	files, err := collectFiles(dir)
	if err != nil {
		return err
	}

	// input errors are reported before any connection is opened
	uploadOptions := upload.Options{
		StrictRoots:      opts.strict || cfg.Upload.StrictRoots,
		CleanupOnFailure: opts.cleanup || cfg.Upload.CleanupOnFailure,
	}
	structure, err := classify(files, uploadOptions.StrictRoots)
	if err != nil {
		return errors.New(upload.UserMessage(err))
	}
	req := upload.Request{
		Structure:   &structure,
		Description: opts.description,
		Categories:  opts.categories,
		Price:       opts.price,
	}
	if err := upload.Validate(req); err != nil {
		return errors.New(upload.UserMessage(err))
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := media.NewFromConfig(ctx, cfg.Media)
	if err != nil {
		return err
	}

	if resizer := media.NewResizer(cfg.Media.MaxImageWidth); resizer != nil {
		uploadOptions.Transformer = resizer
	}
	products := services.NewProductService(services.NewSQLExecutor(db, cfg.Database.Driver))
	orchestrator := upload.NewOrchestrator(services.NewProductRegistrar(products, cliCreator), store, uploadOptions)

	var product models.Product
	if opts.plain {
		product, err = orchestrator.Submit(ctx, req, func(s upload.State) {
			fmt.Fprintln(out, formatState(s))
		})
	} else {
		product, err = submitWithProgress(ctx, orchestrator, req, out)
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"dir":     dir,
			"product": structure.ProductName,
		}).Error("Ingest failed: %v", err)
		return errors.New(upload.UserMessage(err))
	}

	logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"files":      structure.TotalFiles(),
	}).Info("Product ingested")
	fmt.Fprintf(out, "%s registered as %s (slug %s)\n", product.Name, product.ID, product.Slug)
	return nil
}

func submitWithProgress(ctx context.Context, orchestrator *upload.Orchestrator, req upload.Request, out io.Writer) (models.Product, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newProgressModel(req.Structure.ProductName, cancel), tea.WithOutput(out))

	go func() {
		product, err := orchestrator.Submit(ctx, req, func(s upload.State) {
			program.Send(stateMsg(s))
		})
		program.Send(doneMsg{product: product, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return models.Product{}, err
	}
	m := final.(progressModel)
	if !m.finished {
		return models.Product{}, errors.New("ingest interrupted")
	}
	return m.product, m.err
}

func classify(files []upload.FileEntry, strict bool) (upload.ProductStructure, error) {
	if strict {
		return upload.ClassifyStrict(files)
	}
	return upload.Classify(files), nil
}

// collectFiles lists the files under dir as paths relative to dir's parent,
// so that the first segment is the product folder name.
func collectFiles(dir string) ([]upload.FileEntry, error) {
	root := filepath.Clean(dir)
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}
	parent := filepath.Dir(root)

	var files []upload.FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		files = append(files, upload.NewFileEntry(filepath.ToSlash(rel), func() (io.ReadCloser, error) {
			return os.Open(path)
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no files found in %s", dir)
	}
	return files, nil
}

func formatState(s upload.State) string {
	line := fmt.Sprintf("[%s] %s %d/%d (%d%%)", s.Phase, s.ProductName, s.Uploaded, s.Total, s.Progress)
	if s.Error != "" {
		line += ": " + s.Error
	}
	return line
}
