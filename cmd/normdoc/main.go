package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avolkhin/normdoc"
	"github.com/avolkhin/normdoc/server"
)

var version = "2.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "normdoc",
		Short: "Structure extraction and search for construction regulations",
		Long: `normdoc processes construction regulatory documents (СП, ГОСТ, СНиП):
it extracts their hierarchical structure, splits them into retrieval-ready
chunks, and indexes the chunks for full-text and vector search.

Supported formats: TXT, MD, HTML, PDF, DOCX, XLSX.`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(documentsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the effective config: defaults, then the YAML file
// when given, then environment variable overrides.
func loadConfig(cmd *cobra.Command) (normdoc.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := normdoc.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = normdoc.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("NORMDOC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("NORMDOC_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("NORMDOC_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("NORMDOC_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("NORMDOC_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("NORMDOC_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("NORMDOC_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}

	return cfg, nil
}

// setupLogging configures the default slog logger. Commands that print
// JSON to stdout log to stderr so output stays pipeable.
func setupLogging(cmd *cobra.Command, w *os.File) {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Process a document and print the result as JSON",
		Long: `Parse a document, extract its structure, and chunk it. Nothing is
persisted; the full result is printed to stdout as JSON.

Examples:
  normdoc process sp63.pdf
  normdoc process gost.txt --structure-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stderr)
			structureOnly, _ := cmd.Flags().GetBool("structure-only")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Processing a single file never needs vector search.
			cfg.Embedding.Provider = ""
			cfg.DBPath = tempDBPath()
			defer os.Remove(cfg.DBPath)

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			result, err := engine.ProcessFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if structureOnly {
				return printJSON(normdoc.StructureResult{
					DocumentInfo: result.DocumentInfo,
					Sections:     result.Sections,
					Tables:       result.Tables,
					Lists:        result.Lists,
					ContentStats: result.Statistics.ContentStats,
				})
			}
			return printJSON(result)
		},
	}

	cmd.Flags().Bool("structure-only", false, "Print structure without chunks")
	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the search index",
		Long: `Parse, process, index, and (when an embedding provider is configured)
embed one or more document files. Documents whose content is unchanged
since the last ingestion are skipped unless --force is given.

Examples:
  normdoc ingest sp63.pdf
  normdoc ingest docs/*.pdf --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stdout)
			force, _ := cmd.Flags().GetBool("force")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if noEmbed, _ := cmd.Flags().GetBool("no-embed"); noEmbed {
				cfg.Embedding.Provider = ""
			}

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			var opts []normdoc.IngestOption
			if force {
				opts = append(opts, normdoc.WithForceReprocess())
			}

			var failed int
			for _, path := range args {
				docKey, err := engine.Ingest(cmd.Context(), path, opts...)
				if err != nil {
					slog.Error("ingest failed", "file", path, "error", err)
					failed++
					continue
				}
				fmt.Printf("%s\t%s\n", docKey, path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Re-process even if content is unchanged")
	cmd.Flags().Bool("no-embed", false, "Skip embedding generation (FTS only)")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search ingested documents",
		Long: `Run full-text and (when embeddings are configured) vector search over
ingested chunks.

Examples:
  normdoc search "прочность бетона"
  normdoc search "огнестойкость" --limit 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stderr)
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			ftsOnly, _ := cmd.Flags().GetBool("fts-only")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			opts := []normdoc.SearchOption{normdoc.WithMaxResults(limit)}
			if ftsOnly {
				opts = append(opts, normdoc.WithFTSOnly())
			}

			results, err := engine.Search(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(results)
			}

			for i, r := range results {
				header := r.Filename
				if r.SectionNumber != "" {
					header += " § " + r.SectionNumber
				}
				if r.SectionTitle != "" {
					header += " " + r.SectionTitle
				}
				fmt.Printf("%d. [%.3f %s] %s\n", i+1, r.Score, r.Method, header)
				text := r.Snippet
				if text == "" {
					text = r.Content
					if len([]rune(text)) > 200 {
						text = string([]rune(text)[:200]) + "…"
					}
				}
				fmt.Printf("   %s\n\n", text)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().Bool("fts-only", false, "Skip vector search")
	return cmd
}

func documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage ingested documents",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stderr)
			asJSON, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			docs, err := engine.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(docs)
			}
			for _, d := range docs {
				title := d.Title
				if title == "" {
					title = d.Filename
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", d.Key, d.Status, d.Number, title)
			}
			return nil
		},
	}
	listCmd.Flags().Bool("json", false, "Print documents as JSON")

	deleteCmd := &cobra.Command{
		Use:   "delete [doc-key]",
		Short: "Delete a document and all its indexed data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stderr)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			if err := engine.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(deleteCmd)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the HTTP API exposing document processing, ingestion, and search.
Set server.auth_token in the config or NORMDOC_AUTH_TOKEN to require a
bearer token on API endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, os.Stdout)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			engine, err := normdoc.New(cfg)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			srv := &http.Server{
				Addr:        cfg.Server.Addr,
				Handler:     server.New(engine, slog.Default(), cfg.Server),
				ReadTimeout: 30 * time.Second,
				// Ingestion of large PDFs can be long; rely on the
				// handler-level timeout instead.
				WriteTimeout: 0,
				IdleTimeout:  120 * time.Second,
			}

			done := make(chan os.Signal, 1)
			signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", cfg.Server.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-done:
			}

			slog.Info("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

// tempDBPath returns a throwaway database path for commands that only
// need the processing pipeline, not persistence.
func tempDBPath() string {
	return fmt.Sprintf("%s/normdoc-%d.db", os.TempDir(), os.Getpid())
}
