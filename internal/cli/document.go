package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	couch "github.com/rogerbrinkmann/couchdb-rest-api"
)

var (
	docLimit       int
	docSkip        int
	docDescending  bool
	docIncludeDocs bool
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "List and save documents",
}

var docListCmd = &cobra.Command{
	Use:   "list [db]",
	Short: "List documents of a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		result, err := s.Database(args[0]).AllDocs(cmdContext(cmd), listOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var docKeysCmd = &cobra.Command{
	Use:   "keys [db] [id...]",
	Short: "List documents by id",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		result, err := s.Database(args[0]).AllDocsByKeys(cmdContext(cmd), args[1:], listOptions(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var docSaveCmd = &cobra.Command{
	Use:   "save [db] [json|-]",
	Short: "Save a document",
	Long: `Save a JSON document. Without an _id the document gets a random one.
Pass - to read the document from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd.InOrStdin(), args[1])
		if err != nil {
			return err
		}
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		saved, err := s.Database(args[0]).Save(cmdContext(cmd), doc)
		if err != nil {
			return err
		}
		return printJSON(cmd, saved)
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get [db] [id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		doc, err := s.Database(args[0]).Retrieve(cmdContext(cmd), args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, doc)
	},
}

func init() {
	for _, c := range []*cobra.Command{docListCmd, docKeysCmd} {
		c.Flags().IntVar(&docLimit, "limit", 0, "maximum number of rows")
		c.Flags().IntVar(&docSkip, "skip", 0, "number of rows to skip")
		c.Flags().BoolVar(&docDescending, "descending", false, "return rows in descending order")
		c.Flags().BoolVar(&docIncludeDocs, "include-docs", false, "include the documents")
	}
	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docKeysCmd)
	docCmd.AddCommand(docSaveCmd)
	docCmd.AddCommand(docGetCmd)
	rootCmd.AddCommand(docCmd)
}

// listOptions collects the flags that were set on cmd.
func listOptions(cmd *cobra.Command) couch.Options {
	options := couch.Options{}
	flags := cmd.Flags()
	if flags.Changed("limit") {
		options["limit"] = docLimit
	}
	if flags.Changed("skip") {
		options["skip"] = docSkip
	}
	if docDescending {
		options["descending"] = true
	}
	if docIncludeDocs {
		options["include_docs"] = true
	}
	return options
}

func readDocument(stdin io.Reader, arg string) (couch.Document, error) {
	var r io.Reader = strings.NewReader(arg)
	if arg == "-" {
		r = stdin
	}
	var doc couch.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("invalid document: not a JSON object")
	}
	return doc, nil
}
