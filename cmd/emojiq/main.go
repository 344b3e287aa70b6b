// Command emojiq runs emoji queries against local catalogs and converts
// catalog files between plain and packed form.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/coffersTech/emojisearch/internal/catalog"
	"github.com/coffersTech/emojisearch/internal/engine"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/emojiql"
	"github.com/coffersTech/emojisearch/internal/storage"
)

const usage = `usage: emojiq <command> [flags] [args]

commands:
  search   run a query against a catalog directory
  explain  print the parsed query tree
  tokens   print the query tokens
  pack     compress a catalog file
  unpack   write a catalog file as plain JSON
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "search":
		err = runSearch(ctx, args[1:], stdout)
	case "explain":
		err = runExplain(args[1:], stdout)
	case "tokens":
		err = runTokens(args[1:], stdout)
	case "pack":
		err = runConvert(args[1:], true)
	case "unpack":
		err = runConvert(args[1:], false)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "emojiq %s: %v\n", args[0], err)
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("wrong number of arguments")

func runSearch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "Directory holding <family>-Metadata.json catalogs")
	familyName := fs.String("family", string(model.FamilyFluentUI), "Emoji family")
	sortName := fs.String("sort", engine.SortDefault, "Sort order (default or deltaE94)")
	byGroup := fs.Bool("group", false, "Group results by emoji group")
	limit := fs.Int("limit", 0, "Maximum results, 0 for all")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	family, err := model.ParseFamily(*familyName)
	if err != nil {
		return err
	}
	repo, err := catalog.OpenRepository(*dataDir, nil)
	if err != nil {
		return err
	}

	res, err := engine.NewSearchEngine(repo, nil, nil).Run(ctx, engine.Request{
		Query:        strings.Join(fs.Args(), " "),
		Family:       family,
		Sort:         *sortName,
		GroupByGroup: *byGroup,
		Limit:        *limit,
	})
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Emojis)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLDR\tGROUP\tGLYPH")
	for _, e := range res.Emojis {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.CLDR, e.Group, e.Glyph)
	}
	fmt.Fprintf(tw, "\n%d of %d matches\n", len(res.Emojis), res.Total)
	return tw.Flush()
}

func runExplain(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	tree, err := engine.Explain(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tree)
	return nil
}

func runTokens(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	tokens, err := emojiql.Tokenize(strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, t := range tokens {
		fmt.Fprintf(stdout, "%-20s %q\n", t.Type, t.Value)
	}
	return nil
}

func runConvert(args []string, pack bool) error {
	name := "unpack"
	if pack {
		name = "pack"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	codecName := fs.String("codec", "zstd", "Compression codec for pack (zstd or lz4)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	codec, err := storage.ParseCodec(*codecName)
	if err != nil {
		return err
	}

	reader, err := storage.NewCatalogReader()
	if err != nil {
		return err
	}
	defer reader.Close()
	emojis, err := reader.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	writer, err := storage.NewCatalogWriter()
	if err != nil {
		return err
	}
	defer writer.Close()
	writer.Codec = codec
	return writer.WriteFile(fs.Arg(1), emojis, pack)
}
