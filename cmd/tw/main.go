package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ticketwise/internal/config"
	"ticketwise/internal/db"
	"ticketwise/internal/engine"
	"ticketwise/internal/estimator"
	"ticketwise/internal/migrate"
	"ticketwise/internal/repo"
	"ticketwise/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tw",
	Short: "Ticketwise CLI",
	Long: `Ticketwise turns free-text task descriptions into structured project
estimates and tickets.
- Estimate: 'tw estimate "Add user login"' asks the model for time, priority,
  complexity, dependencies, required access, and labels. The reply is always
  well-shaped; a garbled model answer falls back to a conservative estimate.
- Tickets: estimates can be materialized as tickets ('tw estimate --create' or
  'tw ticket create'), stored in the .ticketwise workspace database.
- Event log: every estimate and ticket creation is recorded, view with
  'tw log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TICKETWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("gemini-api-key", "TICKETWISE_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = viper.BindEnv("gemini-model", "TICKETWISE_GEMINI_MODEL", "GEMINI_MODEL")
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(ticketCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func estimateCmd() *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "estimate <task description>",
		Short: "Estimate a task with the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				logger, err := zap.NewProduction()
				if err != nil {
					return err
				}
				defer logger.Sync()
				inv, err := newInvoker(ctx, e.Config)
				if err != nil {
					return err
				}
				e.Estimator = estimator.New(inv, logger)
				resp, err := e.Estimate(ctx, task)
				if err != nil {
					return err
				}
				if create {
					if !resp.Success {
						return fmt.Errorf("estimate failed, no ticket created: %s", resp.Error)
					}
					ticket, err := e.CreateTicketFromEstimate(ctx, resp)
					if err != nil {
						return err
					}
					return printJSONOrTable(map[string]any{"estimate": resp, "ticket": ticket})
				}
				return printJSONOrTable(resp)
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "also materialize a ticket from the estimate")
	return cmd
}

func ticketCmd() *cobra.Command {
	tk := &cobra.Command{Use: "ticket", Short: "Manage tickets"}
	tk.AddCommand(ticketCreateCmd())
	tk.AddCommand(ticketListCmd())
	tk.AddCommand(ticketGetCmd())
	return tk
}

func ticketCreateCmd() *cobra.Command {
	var opts engine.TicketCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.Description) == "" {
				return fmt.Errorf("--description required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTicket(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "ticket description")
	cmd.Flags().StringVar(&opts.Title, "title", "", "ticket title (derived from description if empty)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (stored lowercased)")
	cmd.Flags().StringVar(&opts.EstimatedTime, "estimated-time", "", "estimated time")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringSliceVar(&opts.AccessRequired, "access", nil, "required access (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Dependencies, "depends-on", nil, "dependency (repeatable)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func ticketListCmd() *cobra.Command {
	var f repo.TicketFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tickets, err := r.ListTickets(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tickets)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Number", "Title", "Status", "Priority", "Estimated"})
				for _, t := range tickets {
					tw.AppendRow(table.Row{t.TicketNumber, t.Title, t.Status, t.Priority, t.EstimatedTime})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max tickets to return")
	return cmd
}

func ticketGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <ticket-id or TKT-number>",
		Short: "Get ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				id := args[0]
				var ticket any
				var err error
				if strings.HasPrefix(id, "TKT-") {
					ticket, err = r.GetTicketByNumber(ctx, id)
				} else {
					ticket, err = r.GetTicket(ctx, id)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(ticket)
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Ticket counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				counts, err := r.CountTicketsByStatus(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"ticket_counts": counts})
				}
				fmt.Println("Tickets:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, "", entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default ticketwise.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if file != "" {
				cfg, err = config.FromFile(file)
			} else {
				cfg, err = config.LoadOptional(viper.GetString("workspace"))
			}
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read config from this file instead of the workspace")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the workspace ticketwise.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := config.Load(workspace); err != nil {
				return err
			}
			fmt.Println(config.Path(workspace), "is valid")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()
			e := engine.New(conn, cfg)
			inv, err := newInvoker(cmd.Context(), cfg)
			if err != nil {
				logger.Warn("estimation disabled", zap.Error(err))
			} else {
				e.Estimator = estimator.New(inv, logger)
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving Ticketwise API",
				zap.String("addr", addr),
				zap.String("base_path", basePath))
			fmt.Printf("Serving Ticketwise API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func newInvoker(ctx context.Context, cfg *config.Config) (estimator.Invoker, error) {
	apiKey := viper.GetString("gemini-api-key")
	if apiKey == "" && cfg != nil {
		apiKey = cfg.Model.APIKey
	}
	model := viper.GetString("gemini-model")
	if model == "" && cfg != nil {
		model = cfg.Model.ID
	}
	return estimator.NewGeminiInvoker(ctx, apiKey, model)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
