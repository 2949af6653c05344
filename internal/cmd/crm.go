package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/spec-kit/product-links/internal/crm"
)

func newCRMCmd() *cobra.Command {
	crmCmd := &cobra.Command{
		Use:   "crm",
		Short: "Inspect the CRM webhook",
	}
	crmCmd.AddCommand(newCRMFieldsCmd())
	return crmCmd
}

func newCRMFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the product fields the CRM exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			client := crm.NewClient(rt.cfg.CRM.WebhookURL, rt.cfg.CRM.Timeout())
			fields, err := client.ProductFields(cmd.Context())
			if err != nil {
				return err
			}

			codes := make([]string, 0, len(fields))
			for code := range fields {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			out := cmd.OutOrStdout()
			for _, code := range codes {
				field := fields[code]
				flags := ""
				if field.IsRequired {
					flags += " required"
				}
				if field.IsReadOnly {
					flags += " read-only"
				}
				fmt.Fprintf(out, "%-20s %-10s %s%s\n", code, field.Type, field.Title, flags)
			}
			return nil
		},
	}
}
