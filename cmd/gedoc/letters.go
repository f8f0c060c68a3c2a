package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/diewo77/gedoc/internal/letters"
	"github.com/diewo77/gedoc/internal/submissions"
	"github.com/spf13/cobra"
)

func typesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the letter templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, _ := cmd.Flags().GetString("tier")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			items, err := newClient(cmd).LetterTypes(ctx, letters.Tier(tier))
			if err != nil {
				return explain(err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIER\tTITLE")
			for _, lt := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", lt.ID, lt.Tier, lt.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("tier", "t", "", "Filter by tier (standard, premium)")
	return cmd
}

func readForm(path string) (letters.FormData, error) {
	var f letters.FormData
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [form.json]",
		Short: "Generate a letter from a JSON form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(args[0])
			if err != nil {
				return err
			}
			if typ, _ := cmd.Flags().GetString("type"); typ != "" {
				form.LetterTypeID = typ
			}
			res, err := newClient(cmd).Generate(cmd.Context(), form)
			if err != nil {
				return explain(err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Content)
			return nil
		},
	}
	cmd.Flags().String("type", "", "Letter type id, overrides letter_type_id in the form")
	return cmd
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [form.json]",
		Short: "Generate a letter and submit it for payment validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(args[0])
			if err != nil {
				return err
			}
			ref, _ := cmd.Flags().GetString("transaction")
			product, _ := cmd.Flags().GetString("product")
			phone, _ := cmd.Flags().GetString("phone")
			if phone == "" {
				phone = form.SenderPhone
			}

			c := newClient(cmd)
			gen, err := c.Generate(cmd.Context(), form)
			if err != nil {
				return explain(err)
			}
			if product == "" {
				product = gen.ProductType
			}
			id, err := c.Submit(cmd.Context(), submissions.CreateInput{
				Nom:               form.SenderName,
				Email:             form.SenderEmail,
				Telephone:         phone,
				TypeLettre:        gen.LetterType.ID,
				ContenuLettre:     gen.Content,
				NumeroTransaction: ref,
				ProductType:       product,
			})
			if err != nil {
				return explain(err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s, waiting for payment validation.\n", id)
			fmt.Fprintf(cmd.OutOrStdout(), "Track it with: gedoc status --wait %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringP("transaction", "x", "", "Mobile money transaction reference")
	cmd.Flags().String("product", "", "Product code (LETTRE_STANDARD, LETTRE_PREMIUM)")
	cmd.Flags().String("phone", "", "Phone number used for the payment")
	_ = cmd.MarkFlagRequired("transaction")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show the payment status of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			wait, _ := cmd.Flags().GetBool("wait")
			interval, _ := cmd.Flags().GetDuration("interval")

			var (
				st  *submissions.StatusView
				err error
			)
			if wait {
				st, err = c.WaitForValidation(cmd.Context(), args[0], interval)
			} else {
				st, err = c.Check(cmd.Context(), args[0])
			}
			if st != nil {
				if jsonOutput(cmd) {
					if perr := printJSON(cmd.OutOrStdout(), st); perr != nil {
						return perr
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "statut=%s paiement_valide=%t pdf_debloque=%t produit=%s\n",
						st.Statut, st.PaiementValide, st.PDFDebloque, st.ProductType)
				}
			}
			return explain(err)
		},
	}
	cmd.Flags().BoolP("wait", "w", false, "Poll until the PDF is unlocked or the submission is refused")
	cmd.Flags().Duration("interval", 10*time.Second, "Polling interval with --wait")
	return cmd
}

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [id]",
		Short: "Download the PDF of a validated submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = "lettre-" + args[0] + ".pdf"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := newClient(cmd).DownloadPDF(cmd.Context(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, n)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file")
	return cmd
}
