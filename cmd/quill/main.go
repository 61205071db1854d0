package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quillhealth/quill/internal/app"
	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/logging"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const engineTimeout = 30 * time.Second

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Quill personal health journal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(newLogCommand())
	rootCmd.AddCommand(newRecentCommand())
	rootCmd.AddCommand(newTrendCommand())
	rootCmd.AddCommand(newRemindersCommand())
	rootCmd.AddCommand(newRestoreCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("cache-path", defaults.GetString("cache.path"), "Local cache database path")
	cmd.PersistentFlags().String("remote-url", defaults.GetString("remote.base_url"), "Remote backend base URL")
	cmd.PersistentFlags().String("account-id", "", "External account id for sign-in")
	cmd.PersistentFlags().String("account-name", "", "External account display name")
	cmd.PersistentFlags().String("account-email", "", "External account email")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "cache.path", "cache-path")
	bindFlag(cmd, "remote.base_url", "remote-url")
	bindFlag(cmd, "account.id", "account-id")
	bindFlag(cmd, "account.display_name", "account-name")
	bindFlag(cmd, "account.email", "account-email")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type engine struct {
	app    *app.App
	logger *zap.Logger
	close  func()
}

// buildEngine composes the full client engine, signs in when an account is
// configured and waits for the launch sequence to resolve the active user.
func buildEngine(ctx context.Context) (*engine, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := cache.Open(appConfig.CachePath, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	localCache, err := cache.New(cache.Config{Database: db, Logger: logger})
	if err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: appConfig.RemoteBaseURL,
		Logger:  logger,
	})
	if err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	account := journal.ExternalAccountRef{
		AccountID:   appConfig.AccountID,
		DisplayName: appConfig.AccountDisplayName,
		Email:       appConfig.AccountEmail,
	}
	if account.AccountID != "" {
		if err := client.SignIn(ctx, account); err != nil {
			logger.Warn("remote sign-in failed, continuing local-only", zap.Error(err))
		}
	}

	composed, err := app.New(app.Dependencies{
		Cache:  localCache,
		Remote: client,
		Auth:   remote.StaticAuthProvider{Account: account},
		Logger: logger,
	})
	if err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	composed.Store.Send(state.AppLaunched{})
	if _, err := composed.WaitFor(ctx, func(tree state.AppState) bool {
		return tree.Global.ActiveUser != nil || tree.Global.UserLoadFailed
	}); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, err
	}

	return &engine{
		app:    composed,
		logger: logger,
		close: func() {
			logger.Sync() //nolint:errcheck
			sqlDB.Close() //nolint:errcheck
		},
	}, nil
}

func newLogCommand() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record a journal entry",
	}

	var notes string
	moodCmd := &cobra.Command{
		Use:   "mood <negative|neutral|positive>",
		Short: "Record a mood entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := parseMoodRank(args[0])
			if err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine) error {
				store := eng.app.Store
				store.Send(state.CreateLogOpened{})
				store.Send(state.CategorySelected{Category: journal.CategoryMood})
				store.Send(state.MoodRankSelected{Rank: rank})
				store.Send(state.NotesChanged{Notes: notes})
				store.Send(state.SavePressed{})
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return !tree.CreateLog.Saving
				})
				if err != nil {
					return err
				}
				if tree.CreateLog.SaveErrorShown {
					return errors.New("mood entry could not be saved")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "mood logged")
				return nil
			})
		},
	}
	moodCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	var noteTitle, noteBody string
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Record a free-form note",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *engine) error {
				store := eng.app.Store
				store.Send(state.CreateLogOpened{})
				store.Send(state.TitleChanged{Title: noteTitle})
				store.Send(state.NotesChanged{Notes: noteBody})
				store.Send(state.SavePressed{})
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return !tree.CreateLog.Saving
				})
				if err != nil {
					return err
				}
				if tree.CreateLog.SaveErrorShown {
					return errors.New("note could not be saved")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "note logged")
				return nil
			})
		},
	}
	noteCmd.Flags().StringVar(&noteTitle, "title", "", "Note title")
	noteCmd.Flags().StringVar(&noteBody, "notes", "", "Note body")

	logCmd.AddCommand(moodCmd)
	logCmd.AddCommand(noteCmd)
	return logCmd
}

func newRecentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Show recent journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *engine) error {
				eng.app.Store.Send(state.HomeAppeared{})
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return tree.GlobalLogs.Retrieved
				})
				if err != nil {
					return err
				}
				if len(tree.GlobalLogs.Logs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no entries yet")
					return nil
				}
				for _, log := range tree.GlobalLogs.Logs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]  %s\n",
						log.DateCreated.Local().Format("2006-01-02 15:04"), log.Category, log.Title)
				}
				return nil
			})
		},
	}
}

func newTrendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trend",
		Short: "Show the 7-day mood trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *engine) error {
				eng.app.Store.Send(state.HomeAppeared{})
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return tree.Home.AnalyticsReady
				})
				if err != nil {
					return err
				}
				trend := tree.Home.Analytics.HistoricalMoodRank
				if trend == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no analytics available")
					return nil
				}
				for _, day := range trend.Days {
					if day.Average == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s  -\n", day.Date.Format("2006-01-02"))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f\n", day.Date.Format("2006-01-02"), *day.Average)
				}
				return nil
			})
		},
	}
}

func newRemindersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "List scheduled reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *engine) error {
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return tree.GlobalLogReminders.Retrieved
				})
				if err != nil {
					return err
				}
				if len(tree.GlobalLogReminders.Reminders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no reminders")
					return nil
				}
				for _, reminder := range tree.GlobalLogReminders.Reminders {
					recurrence := "one-shot"
					if reminder.Recurring() {
						recurrence = "every " + reminder.Interval.String()
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]  %s (%s)\n",
						reminder.ReminderDate.Local().Format("2006-01-02 15:04"),
						reminder.Template.Category, reminder.Template.Title, recurrence)
				}
				return nil
			})
		},
	}
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore a previously linked account, discarding local data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *engine) error {
				eng.app.Store.Send(state.RestorePressed{})
				tree, err := eng.app.WaitFor(ctx, func(tree state.AppState) bool {
					return !tree.Settings.Restoring
				})
				if err != nil {
					return err
				}
				if tree.Settings.ErrorShown || tree.Global.ActiveUser == nil {
					return errors.New("restore failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored account %s\n", tree.Global.ActiveUser.ID)
				return nil
			})
		},
	}
}

func withEngine(run func(ctx context.Context, eng *engine) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), engineTimeout)
	defer cancel()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.close()

	return run(ctx, eng)
}

func parseMoodRank(raw string) (journal.MoodRank, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "negative":
		return journal.MoodRankNegative, nil
	case "neutral":
		return journal.MoodRankNeutral, nil
	case "positive":
		return journal.MoodRankPositive, nil
	}
	return 0, fmt.Errorf("unknown mood %q", raw)
}
