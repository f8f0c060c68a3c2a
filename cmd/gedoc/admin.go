package main

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/diewo77/gedoc/client"
	"github.com/diewo77/gedoc/internal/submissions"
	"github.com/spf13/cobra"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administration of submissions",
	}
	cmd.AddCommand(loginCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(actionCmd(submissions.ActionValidate, "Confirm the payment and unlock the PDF"))
	cmd.AddCommand(actionCmd(submissions.ActionReject, "Refuse the submission"))
	cmd.AddCommand(actionCmd(submissions.ActionDelete, "Delete the submission (super administrators only)"))
	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			res, err := newClient(cmd).Login(cmd.Context(), args[0], password)
			if err != nil {
				return explain(err)
			}
			path, err := saveToken(res.Token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), token stored in %s until %s\n",
				args[0], res.Profile, path, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "Password, read from stdin when empty")
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts client.ListOptions
			opts.Statut, _ = cmd.Flags().GetString("statut")
			opts.Search, _ = cmd.Flags().GetString("search")
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.Offset, _ = cmd.Flags().GetInt("offset")

			items, counts, err := newClient(cmd).AdminList(cmd.Context(), opts)
			if err != nil {
				return explain(err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]any{"items": items, "counts": counts})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUT\tNOM\tTRANSACTION\tPRODUIT\tPRIX\tDATE")
			for _, s := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.Statut, s.Nom,
					s.NumeroTransaction, s.ProductType, s.ProductPrice, s.DateCreation.Local().Format("2006-01-02 15:04"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d total, %d en attente, %d validées, %d refusées\n",
				counts.Total, counts.Pending, counts.Validated, counts.Rejected)
			return nil
		},
	}
	cmd.Flags().StringP("statut", "s", "", "Filter by status (en_attente, valide, refuse, tous)")
	cmd.Flags().StringP("search", "q", "", "Search name, phone or transaction")
	cmd.Flags().IntP("limit", "n", 50, "Maximum results")
	cmd.Flags().Int("offset", 0, "Skip the first results")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals and revenue",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient(cmd).Stats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), st)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submissions: %d (en attente %d, validées %d, refusées %d)\n",
				st.Total, st.Pending, st.Validated, st.Rejected)
			fmt.Fprintf(out, "Revenue: %d FCFA\n", st.Revenue)
			for code, amount := range st.RevenueByProduct {
				fmt.Fprintf(out, "  %s: %d FCFA\n", code, amount)
			}
			return nil
		},
	}
}

func actionCmd(action submissions.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			for _, id := range args {
				res, err := c.AdminAction(cmd.Context(), id, action)
				if err != nil {
					return fmt.Errorf("%s: %w", id, explain(err))
				}
				if jsonOutput(cmd) {
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, res.Message)
			}
			return nil
		},
	}
}
