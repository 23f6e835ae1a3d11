// Command query runs an interactive search session against built
// artifacts. Each input line opens a session and prints the first pages of
// hits with highlighted snippets.
//
// Usage:
//
//	query --db-path ~/seforim/seforim.db
//	query --db-path ./seforim.db --near 0 --base-book-only true
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/di"
	"github.com/seforimapp/seforim-server/internal/logger"
	"github.com/seforimapp/seforim-server/internal/search"
)

const pageSize = 10

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Fatal("invalid configuration", "error", err)
	}

	injector := di.NewContainer(cfg)
	defer injector.Shutdown()
	log := do.MustInvoke[*logger.Logger](injector)
	engine := do.MustInvoke[*search.Engine](injector)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("query> (empty line to exit)")
	for {
		fmt.Print("query> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}

		session, err := engine.OpenSession(line, cfg.Search.Near, search.Filters{
			BaseBookOnly: cfg.Search.BaseBookOnly,
		})
		if err != nil {
			log.Error("open session", "error", err)
			continue
		}
		if session == nil {
			fmt.Println("  (blank query)")
			continue
		}

		total := 0
		for {
			page, err := session.NextPage(ctx, pageSize)
			if err != nil {
				log.Error("next page", "error", err)
				break
			}
			if page == nil {
				break
			}
			for _, hit := range page.Hits {
				total++
				fmt.Printf("%3d. [%s #%d] score=%.2f\n     %s\n",
					total, hit.BookTitle, hit.LineIndex, hit.Score, hit.Snippet)
			}
			if page.IsLastPage {
				break
			}
			fmt.Print("-- more (y/n)? ")
			if !scanner.Scan() || scanner.Text() != "y" {
				break
			}
		}

		facets, err := session.ComputeFacets(ctx)
		if err == nil && facets != nil && len(facets.Books) > 0 {
			fmt.Printf("  %d hits across %d books\n", total, len(facets.Books))
		}
		session.Close()
	}
}
