package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/service"
	"github.com/ShayBox/VRC-BAN/pkg/client"
)

var memberLimit uint

var memberCmd = &cobra.Command{
	Use:     "member",
	Aliases: []string{"members"},
	Short:   "Inspect and moderate group members",
	Long: `Commands run locally with the service account, or against a vrcban server if --server is set.
Moderating through a server requires an admin token in VRCBAN_TOKEN.`,
}

// withModeration logs in locally and passes the moderation service to fn.
func withModeration(ctx context.Context, fn func(m *service.Moderation) error) error {
	backend, err := f.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Login(ctx); err != nil {
		return logError(err, "", "could not log in")
	}
	return fn(backend.Moderation())
}

// operator names the local user in the operator audit.
func operator() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}

var memberShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Show the ban status and moderation history of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			status, correlation, err := cli.Member(cmd.Context(), args[0])
			if err != nil {
				return logError(err, correlation, "failed to get member")
			}
			printMember(status)
			return nil
		}
		return withModeration(cmd.Context(), func(m *service.Moderation) error {
			status, err := m.Member(cmd.Context(), args[0])
			if err != nil {
				return logError(err, "", "failed to get member")
			}
			printMember(status)
			return nil
		})
	},
}

func moderateCmd(use, short, done string,
	remote func(cli *client.Client, ctx context.Context, userID string) (string, error),
	local func(m *service.Moderation, ctx context.Context, operator, userID string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if f.Remote() {
				cli, err := f.GetClient()
				if err != nil {
					return err
				}
				if correlation, err := remote(cli, cmd.Context(), userID); err != nil {
					return logError(err, correlation, "failed to "+use+" "+userID)
				}
				logSuccess("%s %s", done, bold(userID))
				return nil
			}
			return withModeration(cmd.Context(), func(m *service.Moderation) error {
				if err := local(m, cmd.Context(), operator(), userID); err != nil {
					return logError(err, "", "failed to "+use+" "+userID)
				}
				logSuccess("%s %s", done, bold(userID))
				return nil
			})
		},
	}
}

var memberBanCmd = moderateCmd("ban", "Ban a user from the group", "banned",
	(*client.Client).Ban, (*service.Moderation).Ban)

var memberUnbanCmd = moderateCmd("unban", "Lift the ban of a user", "unbanned",
	(*client.Client).Unban, (*service.Moderation).Unban)

var memberSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search users by display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []core.User
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			if users, correlation, err = cli.SearchUsers(cmd.Context(), args[0], memberLimit); err != nil {
				return logError(err, correlation, "search failed")
			}
		} else {
			err := withModeration(cmd.Context(), func(m *service.Moderation) (err error) {
				if users, err = m.SearchUsers(cmd.Context(), args[0], int(memberLimit)); err != nil {
					return logError(err, "", "search failed")
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Display Name", "Bio"})
		for _, u := range users {
			t.AppendRow(table.Row{u.ID, bold(u.DisplayName), faint(truncate(u.Bio, 50))})
		}
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

var memberRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently banned users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var bans []core.AuditLogEntry
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			if bans, correlation, err = cli.RecentBans(cmd.Context(), memberLimit); err != nil {
				return logError(err, correlation, "failed to get recent bans")
			}
		} else {
			backend, err := f.Backend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()
			if bans, err = backend.Moderation().RecentBans(cmd.Context(), int(memberLimit)); err != nil {
				return logError(err, "", "failed to get recent bans")
			}
		}
		printEntries(bans)
		return nil
	},
}

var memberActionsUser string

var memberActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List ban and unban requests made through vrcban",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var actions []core.OperatorAction
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			actions, correlation, err = cli.ListActions(cmd.Context(), client.ListActionsOpts{
				Limit:  memberLimit,
				UserID: memberActionsUser,
			})
			if err != nil {
				return logError(err, correlation, "failed to list actions")
			}
		} else {
			backend, err := f.Backend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()
			actions, err = backend.Auditor.Find(func(a core.OperatorAction) bool {
				return memberActionsUser == "" || a.UserID == memberActionsUser
			}, int(memberLimit))
			if err != nil {
				return logError(err, "", "failed to list actions")
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Action", "Operator", "User", "Result"})
		for _, a := range actions {
			result := greenCheck
			if !a.Success {
				result = redCross + " " + truncate(a.Error, 50)
			}
			t.AppendRow(table.Row{
				a.Time.Local().Format("2006-01-02 15:04:05"),
				a.Action,
				bold(a.Operator),
				a.UserID,
				result,
			})
		}
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memberCmd)

	memberCmd.AddCommand(memberShowCmd, memberBanCmd, memberUnbanCmd, memberSearchCmd, memberRecentCmd, memberActionsCmd)

	for _, cmd := range []*cobra.Command{memberSearchCmd, memberRecentCmd, memberActionsCmd} {
		cmd.Flags().UintVarP(&memberLimit, "limit", "n", 25, "Maximum number of results")
	}
	memberActionsCmd.Flags().StringVar(&memberActionsUser, "user", "", "Only show actions concerning this user")
}

func printMember(status *service.MemberStatus) {
	name := status.UserID
	if status.User != nil && status.User.DisplayName != "" {
		name = fmt.Sprintf("%s (%s)", status.User.DisplayName, status.UserID)
	}
	fmt.Println(bold("\n── " + name + " ──"))

	membership := "not a member"
	if status.Member != nil {
		membership = "member"
	}
	fmt.Printf("  %s: %s\n", faint("Membership"), membership)

	if status.Banned {
		by := status.BannedBy
		if status.BannedByName != "" {
			by = status.BannedByName
		}
		if by == "" {
			by = "unknown"
		}
		fmt.Printf("  %s:     %s by %s\n", faint("Status"), color.RedString("banned"), bold(by))
	} else {
		fmt.Printf("  %s:     %s\n", faint("Status"), color.GreenString("not banned"))
	}

	if len(status.History) == 0 {
		log.Debug().Msg("no stored history for this user")
		return
	}
	fmt.Println()
	printEntries(status.History)
}
