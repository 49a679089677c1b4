package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/matcher"
	"github.com/kozaktomas/face-finder/internal/scoring"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a Reddit link for a face from the terminal",
	Long: `Run one search in-process and print the matches, best first.

Examples:
  face-finder search --photo me.jpg --url https://www.reddit.com/r/pics
  face-finder search --photo me.jpg --url https://redd.it/abc123 --threshold 0.3 --mode percentile --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("photo", "", "Reference photo with the face to look for (required)")
	searchCmd.Flags().String("url", "", "Reddit subreddit or post link (required)")
	searchCmd.Flags().Float64("threshold", 0, "Minimum raw cosine similarity of a match (-1..1)")
	searchCmd.Flags().String("mode", "absolute", "How scores become percents: absolute or percentile")
	searchCmd.Flags().Int("limit", 0, "Show at most this many matches (0 = all)")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
	_ = searchCmd.MarkFlagRequired("photo")
	_ = searchCmd.MarkFlagRequired("url")
}

// SearchMatch is one match of the search command output.
type SearchMatch struct {
	Index        int     `json:"index"`
	PostURL      string  `json:"post_url"`
	ImageURL     string  `json:"image_url"`
	Title        string  `json:"title"`
	Date         string  `json:"date,omitempty"`
	ScoreRaw     float64 `json:"score_raw"`
	ScorePercent int     `json:"score_pct"`
	Color        string  `json:"color"`
}

// SearchOutput is the JSON output of the search command.
type SearchOutput struct {
	Source    string        `json:"source"`
	Threshold float64       `json:"threshold"`
	Mode      string        `json:"mode"`
	Count     int           `json:"count"`
	Messages  []string      `json:"messages"`
	Matches   []SearchMatch `json:"matches"`
}

type searchFlags struct {
	photo      string
	url        string
	threshold  float64
	mode       scoring.PercentMode
	limit      int
	jsonOutput bool
}

func parseSearchFlags(cmd *cobra.Command) (searchFlags, error) {
	mode, err := scoring.ParsePercentMode(mustGetString(cmd, "mode"))
	if err != nil {
		return searchFlags{}, err
	}
	return searchFlags{
		photo:      mustGetString(cmd, "photo"),
		url:        mustGetString(cmd, "url"),
		threshold:  matcher.ClampThreshold(mustGetFloat64(cmd, "threshold")),
		mode:       mode,
		limit:      mustGetInt(cmd, "limit"),
		jsonOutput: mustGetBool(cmd, "json"),
	}, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags, err := parseSearchFlags(cmd)
	if err != nil {
		return err
	}

	photo, err := os.ReadFile(flags.photo)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()
	ctx := context.Background()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_ = p.Close(closeCtx)
	}()

	job, err := p.manager.Start(photo, flags.url, matcher.Options{
		Threshold:        flags.threshold,
		Mode:             flags.mode,
		MinInterocularPx: cfg.Face.MinInterocularPx,
	})
	if err != nil {
		return err
	}

	// Ctrl+C stops the search at the next candidate; matches found so far are still printed.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			p.manager.Cancel(job.ID)
		}
	}()

	collector := newSearchCollector(flags.jsonOutput)
	if err := p.manager.Stream(ctx, job.ID, collector.handle); err != nil {
		return fmt.Errorf("streaming results: %w", err)
	}
	collector.finish()

	matches := sortMatches(collector.matches)
	if flags.limit > 0 && len(matches) > flags.limit {
		matches = matches[:flags.limit]
	}

	if flags.jsonOutput {
		return outputJSON(SearchOutput{
			Source:    flags.url,
			Threshold: flags.threshold,
			Mode:      flags.mode.String(),
			Count:     collector.count,
			Messages:  collector.messages,
			Matches:   matches,
		})
	}

	printSearchResults(os.Stdout, matches, collector.count)
	return nil
}

// searchCollector turns job events into a progress bar and a match list.
type searchCollector struct {
	quiet    bool
	bar      *progressbar.ProgressBar
	matches  []SearchMatch
	messages []string
	count    int
}

func newSearchCollector(quiet bool) *searchCollector {
	return &searchCollector{quiet: quiet, messages: []string{}}
}

func (c *searchCollector) handle(e matcher.Event) error {
	switch e.Type {
	case matcher.EventStatus:
		if e.Total > 0 {
			c.progress(e.Current, e.Total)
			return nil
		}
		c.messages = append(c.messages, e.Text)
		if !c.quiet {
			if c.bar != nil {
				_ = c.bar.Clear()
			}
			fmt.Fprintln(os.Stderr, e.Text)
		}
	case matcher.EventCandidate:
		if e.Match != nil {
			c.matches = append(c.matches, toSearchMatch(*e.Match))
		}
	case matcher.EventFinalize:
		c.count = e.Count
	}
	return nil
}

func (c *searchCollector) progress(current, total int) {
	if c.quiet {
		return
	}
	if c.bar == nil {
		c.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Matching faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}
	_ = c.bar.Set(current)
}

func (c *searchCollector) finish() {
	if c.bar != nil {
		_ = c.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func toSearchMatch(m matcher.Match) SearchMatch {
	return SearchMatch{
		Index:        m.Index,
		PostURL:      m.PostURL,
		ImageURL:     m.ImageURL,
		Title:        m.Title,
		Date:         m.Date,
		ScoreRaw:     m.ScoreRaw,
		ScorePercent: m.ScorePercent,
		Color:        m.Color,
	}
}

// sortMatches orders matches by raw score, best first. Equal scores keep
// their enumeration order.
func sortMatches(matches []SearchMatch) []SearchMatch {
	sorted := make([]SearchMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScoreRaw > sorted[j].ScoreRaw
	})
	return sorted
}

func printSearchResults(w io.Writer, matches []SearchMatch, count int) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Match", "Score", "Title", "Date", "Post")
	for i, m := range matches {
		r, g, b := scoring.PercentToRGB(m.ScorePercent)
		pct := color.RGB(int(r), int(g), int(b)).Add(color.Bold).Sprintf("%3d%%", m.ScorePercent)
		_ = table.Append([]string{
			strconv.Itoa(i + 1),
			pct,
			strconv.FormatFloat(m.ScoreRaw, 'f', 3, 64),
			truncateTitle(m.Title, 48),
			m.Date,
			m.PostURL,
		})
	}
	_ = table.Render()

	fmt.Fprintf(w, "\nFound %d candidates.\n", count)
}

func truncateTitle(title string, maxRunes int) string {
	if title == "" {
		return "(no title)"
	}
	runes := []rune(title)
	if len(runes) <= maxRunes {
		return title
	}
	return string(runes[:maxRunes-1]) + "…"
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
