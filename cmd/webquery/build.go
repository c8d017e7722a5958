package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	webquery "github.com/nlstn/go-webquery"
)

func newBuildCmd(opts *options) *cobra.Command {
	var op string
	var batch bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the requests of a query document without sending them",
		Example: `  webquery build -c northwind.yaml -q products.yaml
  webquery build -c northwind.yaml -q products.yaml --op count
  webquery build -c northwind.yaml -q new-products.yaml --op create --batch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			reqs, err := s.build(op)
			if err != nil {
				return err
			}
			if batch {
				envelope, err := s.client.BuildBatch(reqs)
				if err != nil {
					return err
				}
				reqs = []*webquery.Request{envelope}
			}
			for i, r := range reqs {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				writeRequest(cmd.OutOrStdout(), r, s.client.BaseURL())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&op, "op", "read", "operation: read, by-key, count, create, update or delete")
	cmd.Flags().BoolVar(&batch, "batch", false, "wrap the requests into one $batch request")
	return cmd
}

func (s *session) build(op string) ([]*webquery.Request, error) {
	var (
		r   *webquery.Request
		err error
	)
	switch strings.ToLower(op) {
	case "read":
		r, err = s.client.BuildRead(s.query)
	case "by-key", "key":
		r, err = s.client.BuildReadByKey(s.query)
	case "count":
		r, err = s.client.BuildCount(s.query)
	default:
		operation, perr := parseOperation(op)
		if perr != nil {
			return nil, perr
		}
		return s.client.BuildWrite(operation, s.object, s.doc.BuildRows())
	}
	if err != nil {
		return nil, err
	}
	return []*webquery.Request{r}, nil
}

func parseOperation(op string) (webquery.Operation, error) {
	switch o := webquery.Operation(strings.ToLower(op)); o {
	case webquery.OpCreate, webquery.OpUpdate, webquery.OpDelete:
		return o, nil
	}
	return "", fmt.Errorf("unknown operation %q", op)
}

// writeRequest prints the request line, the headers in name order and the
// body.
func writeRequest(w io.Writer, r *webquery.Request, base string) {
	fmt.Fprintf(w, "%s %s\n", r.Method, r.URL(base))
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range r.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	if len(r.Body) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.TrimRight(string(r.Body), "\r\n"))
	}
}
