package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/product-links/internal/links"
	"github.com/spec-kit/product-links/internal/qr"
)

func newLinkCmd() *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Work with public product links",
	}
	linkCmd.AddCommand(newLinkIssueCmd(), newLinkInspectCmd())
	return linkCmd
}

func newLinkIssueCmd() *cobra.Command {
	var (
		productID int64
		days      int
		qrPath    string
	)

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a view link without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			if days < 0 || days > rt.cfg.Links.MaxLifetimeDays {
				return fmt.Errorf("--days must be between 0 and %d", rt.cfg.Links.MaxLifetimeDays)
			}

			issuer, err := newViewLinkIssuer(rt)
			if err != nil {
				return err
			}
			link, err := issuer.IssueWithLifetime(productID, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			url := qr.ProductURL(rt.cfg.App.PublicBaseURL, link.Token)

			if qrPath != "" {
				png, err := qr.NewRenderer(rt.cfg.Links.QRImageSize).Render(url)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrPath, png, 0o644); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
			}
			printLink(cmd.OutOrStdout(), link, url)
			return nil
		},
	}

	issueCmd.Flags().Int64Var(&productID, "product-id", 0, "local product id")
	issueCmd.Flags().IntVar(&days, "days", 0, "lifetime in days (0 = default)")
	issueCmd.Flags().StringVar(&qrPath, "qr", "", "also write a QR code PNG to this path")
	_ = issueCmd.MarkFlagRequired("product-id")
	return issueCmd
}

func newLinkInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Check whether a view token is currently valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			issuer, err := newViewLinkIssuer(rt)
			if err != nil {
				return err
			}
			productID, err := issuer.Redeem(args[0])
			if errors.Is(err, links.ErrInvalidLink) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid or expired")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: product %d\n", productID)
			return nil
		},
	}
}

func printLink(w io.Writer, link links.Link, url string) {
	fmt.Fprintf(w, "product:    %d\n", link.SubjectID)
	fmt.Fprintf(w, "issued at:  %s\n", link.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "expires at: %s\n", link.ExpiresAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "url:        %s\n", url)
}
