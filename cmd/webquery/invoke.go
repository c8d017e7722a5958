package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInvokeCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Call the service operation of a query document",
		Example: `  webquery invoke -c northwind.yaml -q top-products.yaml
  webquery invoke -c northwind.yaml -q discount.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			if s.doc.Operation == nil {
				return fmt.Errorf("query document has no operation")
			}
			def, args, err := s.doc.BuildOperation(s.object)
			if err != nil {
				return err
			}

			if dryRun {
				r, err := s.client.BuildInvoke(def, args)
				if err != nil {
					return err
				}
				writeRequest(cmd.OutOrStdout(), r, s.client.BaseURL())
				return nil
			}
			result, err := s.client.Invoke(cmd.Context(), def, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"result": result})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the request instead of sending it")
	return cmd
}
