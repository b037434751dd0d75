package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/model"
	"github.com/metalagman/questgraph/internal/progress"
)

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage team members and their profiles",
	}
	cmd.AddCommand(
		memberAddCmd(),
		memberListCmd(),
		memberHideCmd(true),
		memberHideCmd(false),
		memberRemoveCmd(),
		memberLevelCmd(),
		memberFactionCmd(),
		memberTraderCmd(),
	)
	return cmd
}

// withStore runs fn against the configured progress store.
func withStore(ctx context.Context, fn func(cfg config.Config, store *progress.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(cfg, store)
}

func memberAddCmd() *cobra.Command {
	var (
		level   int
		faction string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a team member",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return fmt.Errorf("name is required")
			}
			faction = strings.ToUpper(strings.TrimSpace(faction))
			if faction != "" && faction != model.FactionUSEC && faction != model.FactionBEAR {
				return fmt.Errorf("unknown faction %q", faction)
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				ctx := cmd.Context()
				id, err := store.AddMember(ctx, name)
				if err != nil {
					return err
				}
				if level > 0 {
					if err := store.SetLevel(ctx, id, cfg.Mode(), level); err != nil {
						return err
					}
				}
				if faction != "" {
					if err := store.SetFaction(ctx, id, cfg.Mode(), faction); err != nil {
						return err
					}
				}
				log.Info().Str("member_id", id).Msgf("member %s added", name)
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "player level in the selected game mode")
	cmd.Flags().StringVar(&faction, "faction", "", "player faction (USEC|BEAR)")
	return cmd
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List team members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				members, err := store.Members(cmd.Context(), cfg.Mode())
				if err != nil {
					return err
				}
				if len(members) == 0 {
					log.Info().Msg("no members")
					return nil
				}
				rows := make([][]string, 0, len(members))
				for _, m := range members {
					hidden := ""
					if m.Hidden {
						hidden = "hidden"
					}
					faction := m.Faction
					if faction == "" {
						faction = "-"
					}
					rows = append(rows, []string{m.ID, m.Name, strconv.Itoa(m.Level), faction, hidden})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "NAME", "LEVEL", "FACTION", ""}, rows, nil))
				return nil
			})
		},
	}
}

func memberHideCmd(hidden bool) *cobra.Command {
	use, short := "hide <member>", "Exclude a member from team views"
	if !hidden {
		use, short = "show <member>", "Include a hidden member in team views again"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				return store.SetHidden(cmd.Context(), id, hidden)
			})
		},
	}
}

func memberRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <member>",
		Short: "Remove a member and all of their progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if err := store.RemoveMember(cmd.Context(), id); err != nil {
					return err
				}
				log.Info().Str("member_id", id).Msg("member removed")
				return nil
			})
		},
	}
}

func memberLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <member> <level>",
		Short: "Set the player level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[1])
			if err != nil || level < 1 {
				return fmt.Errorf("invalid level %q", args[1])
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				return store.SetLevel(cmd.Context(), id, cfg.Mode(), level)
			})
		},
	}
}

func memberFactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faction <member> <USEC|BEAR>",
		Short: "Set the player faction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			faction := strings.ToUpper(strings.TrimSpace(args[1]))
			if faction != model.FactionUSEC && faction != model.FactionBEAR {
				return fmt.Errorf("unknown faction %q", args[1])
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				return store.SetFaction(cmd.Context(), id, cfg.Mode(), faction)
			})
		},
	}
}

func memberTraderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trader <member> <trader-id> <level>",
		Short: "Set a trader loyalty level",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[2])
			if err != nil || level < 1 {
				return fmt.Errorf("invalid trader level %q", args[2])
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				return store.SetTraderLevel(cmd.Context(), id, cfg.Mode(), args[1], level)
			})
		},
	}
}
