package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"ao3harvest/lib/configutil"
	"ao3harvest/lib/serviceutil"
	"ao3harvest/services/harvest"

	"github.com/spf13/cobra"
)

var (
	scrapeConfig *string
	scrapeURL    *string
	scrapeCount  *int
)

func init() {
	scrapeConfig = scrapeCmd.Flags().String("config", "config.json5", "Path to the scrape configuration file.")
	scrapeURL = scrapeCmd.Flags().String("url", "", "Search-result listing URL template (prompted for when omitted).")
	scrapeCount = scrapeCmd.Flags().Int("count", 0, "Number of new stories to scrape (prompted for when omitted).")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--config <path>] [--url <listing url>] [--count <n>]",
	Short: "Scrapes story metadata and epubs from an AO3 search listing.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[harvest.Config](*scrapeConfig)
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read config", err)
		}

		listingURL := *scrapeURL
		if listingURL == "" {
			listingURL = promptLine("Enter the main AO3 search link: ")
		}
		if listingURL == "" {
			serviceutil.Fatal("no listing url given", os.ErrInvalid)
		}

		count := *scrapeCount
		if count <= 0 {
			answer := promptLine("Enter the number of stories to scrape: ")
			count, err = strconv.Atoi(answer)
			if err != nil {
				serviceutil.Fatal("story count is not a number", err)
			}
		}

		svc, err := harvest.NewService(cfg)
		if err != nil {
			serviceutil.Fatal("failed to set up scrape", err)
		}
		defer svc.Close()

		t1 := time.Now()
		stats, err := svc.Run(cmd.Context(), listingURL, count)
		if err != nil {
			slog.Error("scrape aborted", "err", err, "scraped", stats.Scraped)
			os.Exit(1)
		}

		slog.Info("scrape finished",
			"scraped", stats.Scraped,
			"skipped", stats.Skipped,
			"pages", stats.PagesVisited,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}

func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
