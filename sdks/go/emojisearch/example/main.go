package main

import (
	"context"
	"fmt"
	"log"

	"github.com/coffersTech/emojisearch/sdks/go/emojisearch"
)

func main() {
	client := emojisearch.NewClient(emojisearch.Options{
		ServerURL: "http://localhost:8090",
	})
	ctx := context.Background()

	res, err := client.Search(ctx, emojisearch.SearchParams{
		Query:  `keyword:"face" & color:"#FFD600"`,
		Family: "FLUENT_UI",
		Sort:   "deltaE94",
		Limit:  10,
	})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	if res.QueryError != "" {
		log.Printf("query rejected, showing everything: %s", res.QueryError)
	}

	for _, e := range res.Results {
		fmt.Printf("%s  %s (%s)\n", e.Glyph, e.CLDR, e.Group)
	}
	fmt.Printf("%d matches\n", res.Count)
}
