package main

import (
	"strings"

	"github.com/spf13/cobra"

	webquery "github.com/nlstn/go-webquery"
)

func newReadCmd(opts *options) *cobra.Command {
	var op string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Send a query document to the service and print the result",
		Example: `  webquery read -c northwind.yaml -q products.yaml
  webquery read -c northwind.yaml -q product.yaml --op by-key
  webquery read -c northwind.yaml -q new-products.yaml --op create`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch strings.ToLower(op) {
			case "read":
				rs, err := s.client.Read(ctx, s.query)
				if err != nil {
					return err
				}
				return writeResult(out, rs)
			case "by-key", "key":
				row, err := s.client.ReadByKey(ctx, s.query)
				if err != nil {
					return err
				}
				return writeResult(out, &webquery.ResultSet{Rows: []webquery.Row{row}})
			case "count":
				total, err := s.client.Count(ctx, s.query)
				if err != nil {
					return err
				}
				return writeJSON(out, map[string]*int64{"total": total})
			}

			operation, err := parseOperation(op)
			if err != nil {
				return err
			}
			var res *webquery.WriteResult
			rows := s.doc.BuildRows()
			switch operation {
			case webquery.OpCreate:
				res, err = s.client.Create(ctx, s.object, rows)
			case webquery.OpUpdate:
				res, err = s.client.Update(ctx, s.object, rows)
			case webquery.OpDelete:
				res, err = s.client.Delete(ctx, s.object, rows)
			}
			if err != nil {
				return err
			}
			return writeJSON(out, res)
		},
	}
	cmd.Flags().StringVar(&op, "op", "read", "operation: read, by-key, count, create, update or delete")
	return cmd
}
