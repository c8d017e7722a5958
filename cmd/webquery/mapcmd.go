package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	webquery "github.com/nlstn/go-webquery"
)

func newMapCmd(opts *options) *cobra.Command {
	var responsePath string
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map a saved response body onto the columns of a query document",
		Example: `  webquery map -c northwind.yaml -q products.yaml -r response.json
  curl -s "$URL" | webquery map -c northwind.yaml -q products.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			body, err := readBody(cmd.InOrStdin(), responsePath)
			if err != nil {
				return err
			}
			rs, err := s.client.MapResponse(body, s.query)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), rs)
		},
	}
	cmd.Flags().StringVarP(&responsePath, "response", "r", "", "response body file (default: stdin)")
	return cmd
}

func readBody(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	body, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

type resultOutput struct {
	Rows       []webquery.Row `json:"rows"`
	Total      *int64         `json:"total,omitempty"`
	TotalExact bool           `json:"total_exact"`
	HasMore    bool           `json:"has_more"`
	NextLink   string         `json:"next_link,omitempty"`
}

func writeResult(w io.Writer, rs *webquery.ResultSet) error {
	return writeJSON(w, resultOutput{
		Rows:       rs.Rows,
		Total:      rs.Total,
		TotalExact: rs.TotalExact,
		HasMore:    rs.HasMore,
		NextLink:   rs.NextLink,
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
