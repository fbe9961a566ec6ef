package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/rbac"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/router"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	dir   string
	apply bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate registers for every lot that has a QR token file in a directory",
		Long: `Reads every *.csv file of --dir, matches it to a production by the lot
number in its file name and prints the preview. With --apply the ready lots
are generated one after another.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			files, err := tokenFilesInDir(opts.dir)
			if err != nil {
				return err
			}
			svcs := router.NewServices(cfg, router.Deps{
				DB:       db,
				Progress: progress.NewMemoryStore(cfg.ProgressTTL()),
			})
			scope := service.Scope{Role: rbac.AdminRole}

			preview, err := svcs.Tokens.Preview(cmd.Context(), scope, files)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), preview); err != nil {
				return err
			}

			items := service.ReadyItems(preview)
			if !opts.apply || len(items) == 0 {
				log.Info().Int("ready", len(items)).Bool("apply", opts.apply).Msg("dry run, nothing generated")
				return nil
			}

			summary, err := svcs.Generation.GenerateBulk(cmd.Context(), scope, dto.BulkGenerateRequest{Items: items})
			if err != nil {
				return err
			}
			log.Info().
				Int("success", summary.Success).
				Int("failed", summary.Failed).
				Int("generated", summary.TotalGenerated).
				Msg("bulk generation finished")
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d lots failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory holding the QR token files (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Generate the ready lots (default is dry-run)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

// tokenFilesInDir lists the csv files of dir sorted by name.
func tokenFilesInDir(dir string) ([]service.TokenFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no csv files in %s", dir)
	}
	sort.Strings(names)

	files := make([]service.TokenFile, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		files[i] = service.TokenFile{
			Name: name,
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		}
	}
	return files, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
