package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grovetools/compass/pkg/chat"
	"github.com/grovetools/compass/pkg/logging"
	"github.com/grovetools/compass/pkg/state"
)

var (
	cacheSession string
	cacheBackend string
	cachePath    string
)

var cacheLog = logging.NewLogger("compass.cache")

// withStore opens the configured store, runs fn and closes the store.
func withStore(fn func(ctx context.Context, store state.Store) error) error {
	cfg := appConfig.Store
	if cacheBackend != "" {
		cfg.Backend = cacheBackend
	}
	if cachePath != "" {
		cfg.Path = cachePath
	}

	store, closeStore, err := state.Open(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			cacheLog.WithError(err).Warn("failed to close store")
		}
	}()

	cacheLog.WithField("backend", cfg.Backend).WithField("session", cacheSession).Debug("opened store")
	return fn(context.Background(), store)
}

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit session-scoped cached values",
		Long: `Reads and writes values in the session store configured in compass.yml.
Every subcommand is scoped to the session given with --session.

Examples:
  compass cache set --session alice step welcome
  compass cache messages --session alice
  compass cache export --session alice > alice.md`,
	}

	cacheCmd.PersistentFlags().StringVarP(&cacheSession, "session", "s", "", "Session or user key (required)")
	cacheCmd.PersistentFlags().StringVar(&cacheBackend, "backend", "", "Override the store backend (memory, file, sqlite)")
	cacheCmd.PersistentFlags().StringVar(&cachePath, "path", "", "Override the store path")
	cacheCmd.MarkPersistentFlagRequired("session")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				value, ok, err := store.Get(ctx, cacheSession, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q not found in session %q", args[0], cacheSession)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				if err := store.Set(ctx, cacheSession, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s\n", color.GreenString("✓"), args[0])
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				if err := store.Delete(ctx, cacheSession, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", color.GreenString("✓"), args[0])
				return nil
			})
		},
	}

	hasCmd := &cobra.Command{
		Use:   "has <key>",
		Short: "Print whether a key is cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				ok, err := store.Has(ctx, cacheSession, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}

	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "Print the cached onboarding messages as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				messages, err := state.NewMessageCache(store).Load(ctx, cacheSession)
				if err != nil {
					return err
				}
				if messages == nil {
					messages = []state.Message{}
				}
				return writeJSON(cmd.OutOrStdout(), messages)
			})
		},
	}

	appendCmd := &cobra.Command{
		Use:   "append <user|coach> <content>",
		Short: "Append an onboarding message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := args[0]
			if role != state.RoleUser && role != state.RoleCoach {
				return fmt.Errorf("role must be %q or %q, got %q", state.RoleUser, state.RoleCoach, role)
			}
			return withStore(func(ctx context.Context, store state.Store) error {
				msg, err := state.NewMessageCache(store).Append(ctx, cacheSession, role, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Appended %s message %s\n", color.GreenString("✓"), role, msg.ID)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached onboarding messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				if err := state.NewMessageCache(store).Clear(ctx, cacheSession); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared messages for %s\n", color.GreenString("✓"), cacheSession)
				return nil
			})
		},
	}

	var exportTitle string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cached onboarding messages as a transcript notebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store state.Store) error {
				messages, err := state.NewMessageCache(store).Load(ctx, cacheSession)
				if err != nil {
					return err
				}
				meta := chat.Frontmatter{Title: exportTitle, User: cacheSession}
				fmt.Fprint(cmd.OutOrStdout(), chat.FormatTranscript(chat.FromMessages(meta, messages)))
				return nil
			})
		},
	}
	exportCmd.Flags().StringVarP(&exportTitle, "title", "t", "Onboarding", "Title for the exported transcript")

	cacheCmd.AddCommand(getCmd, setCmd, deleteCmd, hasCmd, messagesCmd, appendCmd, clearCmd, exportCmd)
	return cacheCmd
}
