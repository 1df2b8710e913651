package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/pbaille/autojournal/internal/api"
	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/config"
	"github.com/pbaille/autojournal/internal/domain"
	"github.com/pbaille/autojournal/internal/fetcher"
	"github.com/pbaille/autojournal/internal/journal"
	"github.com/pbaille/autojournal/internal/logging"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: withApp(func(ctx context.Context, a *app) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			secret := a.cfg.Auth.JWTSecret
			if secret == "" {
				secret = "development-secret-change-me"
				a.logger.Warn("no jwt secret configured, using a development secret")
			}
			tokens, err := auth.NewTokens(secret)
			if err != nil {
				return err
			}
			authSvc := auth.NewService(a.store, tokens, a.logger)

			if err := config.Watch(ctx, configPath, a.logger, func(c *config.Config) {
				lvl, err := logging.ParseLevel(c.Log.Level)
				if err != nil {
					a.logger.Warn("ignoring log level", zap.Error(err))
					return
				}
				a.level.SetLevel(lvl)
			}); err != nil {
				a.logger.Warn("config hot reload disabled", zap.Error(err))
			}

			if addr == "" {
				addr = fmt.Sprintf(":%d", a.cfg.Server.Port)
			}
			srv := api.New(a.journal, authSvc, a.metrics, a.store, a.logger, api.Options{
				Production:     a.cfg.Production(),
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				MaxBodyBytes:   a.cfg.Server.MaxBodyBytes,
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				WriteTimeout:   a.cfg.Server.WriteTimeout,
			})
			return srv.Run(ctx, addr, a.cfg.Server.ShutdownTimeout)
		}),
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config port)")
	return cmd
}

func logCmd() *cobra.Command {
	var enrich bool

	cmd := &cobra.Command{
		Use:   "log [url]",
		Short: "Fetch a page and record the visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				page, err := fetcher.New(30 * time.Second).Fetch(ctx, args[0])
				if err != nil {
					return err
				}

				res, err := a.journal.Capture(ctx, owner, a.settingsFor(ctx, owner), journal.CaptureRequest{
					URL:     page.URL,
					Title:   page.Title,
					Text:    page.Text,
					Favicon: page.Favicon,
				})
				if err != nil {
					return err
				}
				if res.Skipped {
					fmt.Printf("Skipped: %s\n", res.Reason)
					return nil
				}
				verb := "Updated"
				if res.Created {
					verb = "Logged"
				}
				fmt.Printf("%s: %s\n", verb, res.Entry.Title)

				if !enrich {
					return nil
				}
				fmt.Print("Summarizing... ")
				out, err := a.journal.EnrichStored(ctx, owner, res.Entry.URL)
				if err != nil {
					fmt.Println("failed")
					return err
				}
				fmt.Println("done")
				printEnrichment(out)
				return nil
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&enrich, "summarize", false, "also summarize, tag and categorize the page")
	return cmd
}

func listCmd() *cobra.Command {
	var limit, skip int
	var sort, order string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: withApp(func(ctx context.Context, a *app) error {
			filter, err := journal.ParseFilter(journal.SearchParams{Sort: sort, Order: order, Limit: limit, Skip: skip})
			if err != nil {
				return err
			}
			page, err := a.journal.Search(ctx, owner, filter)
			if err != nil {
				return err
			}
			if page.Total == 0 {
				fmt.Println("No entries yet. Use 'journal log' to record one.")
				return nil
			}
			printPage(page)
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().IntVar(&skip, "skip", 0, "entries to skip")
	cmd.Flags().StringVar(&sort, "sort", domain.SortVisitTime, "sort field: visitTime, title, domain, createdAt")
	cmd.Flags().StringVar(&order, "order", "desc", "asc or desc")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [url]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				e, err := a.journal.Get(ctx, owner, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("URL:      %s\n", e.URL)
				fmt.Printf("Title:    %s\n", e.Title)
				fmt.Printf("Visited:  %s\n", e.VisitTime.Local().Format("2006-01-02 15:04:05"))
				fmt.Printf("Category: %s\n", orDash(e.Category))
				fmt.Printf("Status:   %s\n", e.EnrichmentStatus)
				if len(e.Tags) > 0 {
					fmt.Printf("Tags:     %s\n", strings.Join(e.Tags, ", "))
				}
				if e.Content.Summary != "" {
					fmt.Printf("\nSummary:\n%s\n", e.Content.Summary)
				}
				if len(e.Highlights) > 0 {
					fmt.Printf("\nHighlights:\n")
					for _, h := range e.Highlights {
						fmt.Printf("  - %s\n", truncate(h.Text, 100))
						if h.Note != "" {
							fmt.Printf("    note: %s\n", h.Note)
						}
					}
				}
				return nil
			})(cmd, args)
		},
	}
}

func searchCmd() *cobra.Command {
	var p journal.SearchParams

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p.Query = args[0]
			}
			return withApp(func(ctx context.Context, a *app) error {
				filter, err := journal.ParseFilter(p)
				if err != nil {
					return err
				}
				page, err := a.journal.Search(ctx, owner, filter)
				if err != nil {
					return err
				}
				if page.Total == 0 {
					fmt.Println("No matching entries found.")
					return nil
				}
				printPage(page)
				return nil
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&p.Tags, "tags", "", "comma-separated tags (any of)")
	cmd.Flags().StringVar(&p.Category, "category", "", "category")
	cmd.Flags().StringVar(&p.Domain, "domain", "", "domain")
	cmd.Flags().StringVar(&p.StartDate, "from", "", "start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&p.EndDate, "to", "", "end date, inclusive")
	cmd.Flags().IntVarP(&p.Limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func tagsCmd() *cobra.Command {
	var q journal.TagQuery

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags by usage",
		RunE: withApp(func(ctx context.Context, a *app) error {
			tags, err := a.journal.Tags(ctx, owner, q)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println("No tags yet. Tags come from summarizing entries.")
				return nil
			}
			for _, t := range tags {
				fmt.Printf("%5d  %-30s %s\n", t.Count, t.Name, t.Category)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&q.Query, "query", "q", "", "search tag names")
	cmd.Flags().StringVar(&q.Category, "category", "", "only tags of this category")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "most used tags only")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		RunE: withApp(func(ctx context.Context, a *app) error {
			stats, err := a.journal.Stats(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\n", stats.TotalEntries)
			printCounts("Top domains", stats.DomainStats)
			printCounts("Categories", stats.CategoryStats)
			printCounts("Recent days", stats.DayStats)
			return nil
		}),
	}
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [url]",
		Short: "Summarize, tag and categorize a logged entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				out, err := a.journal.EnrichStored(ctx, owner, args[0])
				if err != nil {
					return err
				}
				printEnrichment(out)
				return nil
			})(cmd, args)
		},
	}
}

func rebuildTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-tags",
		Short: "Recompute tag counts from the entries",
		RunE: withApp(func(ctx context.Context, a *app) error {
			live, err := a.journal.RebuildTags(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Printf("Rebuilt tag counts: %d tags in use\n", live)
			return nil
		}),
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add [userId]",
		Short: "Create a user, reading the password from the terminal or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				password, err := readPassword()
				if err != nil {
					return err
				}
				if password == "" {
					return errors.New("password must not be empty")
				}
				hash, err := auth.HashPassword(password, bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				u := &domain.User{UserID: args[0], PasswordHash: hash, Settings: domain.DefaultSettings()}
				if err := a.store.CreateUser(ctx, u); err != nil {
					return err
				}
				fmt.Printf("Created user %s\n", u.UserID)
				return nil
			})(cmd, args)
		},
	})
	return cmd
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printPage(page domain.Page) {
	for _, e := range page.Entries {
		fmt.Printf("%s  %-40s  %s\n",
			e.VisitTime.Local().Format(time.DateTime),
			truncate(e.Title, 40),
			e.URL)
	}
	if shown := page.Skip + len(page.Entries); shown < page.Total {
		fmt.Printf("(%d of %d)\n", shown, page.Total)
	}
}

func printEnrichment(out journal.EnrichResult) {
	fmt.Printf("Summary:  %s\n", out.Summary)
	fmt.Printf("Tags:     %s\n", strings.Join(out.Tags, ", "))
	fmt.Printf("Category: %s\n", out.Category)
}

func printCounts(title string, counts []domain.CountByKey) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, c := range counts {
		fmt.Printf("  %5d  %s\n", c.Count, c.Key)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
