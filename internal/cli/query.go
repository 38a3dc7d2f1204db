package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragsearch/internal/domain"
	"ragsearch/internal/usecase"
	"ragsearch/retrieval"
)

var (
	queryText  string
	queryKind  string
	querySet   map[string]string
	queryJSON  bool
	queryQuiet bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one query against the configured retriever",
	Long: `Build a retriever from the config file, apply --kind and --set overrides,
run the query once and close the retriever.

The meaning of --query depends on the kind: SQL for analytical and relational,
an Extended JSON filter for document, a key prefix for keyvalue and a line
filter for text, pdf and extraction.

Examples:
  ragsearch query --kind relational --set db_path=app.db -q "SELECT * FROM users"
  ragsearch query --kind pdf --set file_path='docs/**/*.pdf' -q invoice --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text")
	queryCmd.Flags().StringVar(&queryKind, "kind", "", "retriever kind (overrides config)")
	queryCmd.Flags().StringToStringVar(&querySet, "set", nil, "configuration key=value (repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryQuiet, "quiet", false, "hide the progress spinner")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger()

	rc := cfg.RetrieverConfig()
	if queryKind != "" {
		rc[domain.KeyKind] = queryKind
	}
	for k, v := range querySet {
		rc[k] = v
	}

	factory := retrieval.NewFactory(
		retrieval.WithLogger(log),
		retrieval.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
	)
	retrieveUC := usecase.NewRetrieveUseCase(factory, log)

	var stop func()
	if !queryQuiet && !queryJSON {
		stop = startSpinner(os.Stderr, "Querying "+rc.Get(domain.KeyKind))
	}

	result, err := retrieveUC.Retrieve(cmd.Context(), rc, domain.Request{Text: queryText})
	if stop != nil {
		stop()
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	printRecords(out, result)
	return nil
}

const maxDisplayRunes = 500

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func printRecords(w io.Writer, result *usecase.Result) {
	if result.Count == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d records (%s)\n\n", result.Count, result.Kind)
	for i, r := range result.Records {
		if r.Source != "" {
			fmt.Fprintf(w, "--- [%d] %s ---\n", i+1, r.Source)
		} else {
			fmt.Fprintf(w, "--- [%d] ---\n", i+1)
		}
		if len(r.Columns) > 0 {
			pairs := make([]string, len(r.Columns))
			for j, c := range r.Columns {
				pairs[j] = fmt.Sprintf("%s=%v", c, r.Values[j])
			}
			fmt.Fprintln(w, strings.Join(pairs, "  "))
		} else {
			fmt.Fprintln(w, truncate(r.Text, maxDisplayRunes))
		}
		fmt.Fprintln(w)
	}
}

// startSpinner animates an indeterminate bar on w until the returned func
// is called.
func startSpinner(w io.Writer, desc string) func() {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("[cyan]"+desc+"[reset]"),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
