// Package clone implements the administrative account clone/replace
// command: it previews and optionally executes a full replacement of one
// account's logbook data with a deep copy of another's.
package clone

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rangelog/rangelog/internal/audit"
	"github.com/rangelog/rangelog/internal/blobstore"
	cloneengine "github.com/rangelog/rangelog/internal/clone"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
	"github.com/rangelog/rangelog/internal/observability"
)

type options struct {
	source    string
	target    string
	requester string
	dryRun    bool
	yes       bool
}

// Command creates the clone command.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Replace one account's data with a copy of another's",
		Long: `Delete everything the target account owns and deep-copy the source
account's entire data graph into it, including stored images. The whole
operation is atomic: it either commits completely or leaves the target
untouched. Every run is written to the audit log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Username of the account to copy from")
	cmd.Flags().StringVar(&opts.target, "target", "", "Username of the account to replace")
	cmd.Flags().StringVar(&opts.requester, "requester", "", "Operator identity recorded in the audit log")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be deleted and copied without changing anything")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Skip the confirmation prompt")

	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runClone(settings *conf.Settings, opts *options) error {
	if !opts.dryRun && opts.requester == "" {
		return fmt.Errorf("--requester is required when executing a clone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *observability.Metrics
	if settings.Metrics.Enabled {
		var err error
		if m, err = observability.NewMetrics(); err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
	}

	ds := datastore.New(settings, metricsOf(m).Datastore)
	if ds == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = ds.Close()
	}()

	store, err := blobstore.New(ctx, settings, metricsOf(m).BlobStore)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	sink, err := audit.NewFileSink(settings.Clone.AuditLog)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer func() {
		_ = sink.Close()
	}()

	// expose live metrics for the duration of long-running clones
	if m != nil {
		endpoint, err := observability.NewEndpoint(settings, m)
		if err == nil {
			var wg sync.WaitGroup
			quit := make(chan struct{})
			endpoint.Start(&wg, quit)
			defer func() {
				close(quit)
				wg.Wait()
			}()
		}
	}

	source, err := ds.AccountByUsername(opts.source)
	if err != nil {
		return fmt.Errorf("resolving source account %q: %w", opts.source, err)
	}
	target, err := ds.AccountByUsername(opts.target)
	if err != nil {
		return fmt.Errorf("resolving target account %q: %w", opts.target, err)
	}

	engine := cloneengine.New(settings, ds, store, sink, metricsOf(m).Clone)

	preview, err := engine.Preview(ctx, source.ID, target.ID)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	printPreview(preview)

	if opts.dryRun {
		fmt.Println("\nDry run, nothing was changed.")
		return nil
	}

	if !opts.yes && !confirm(target.Username) {
		fmt.Println("Aborted.")
		return nil
	}

	result, err := engine.Execute(ctx, source.ID, target.ID, opts.requester)
	if err != nil {
		return fmt.Errorf("clone failed, target account unchanged: %w", err)
	}
	printResult(result)
	return nil
}

// metricsOf unwraps the optional metrics bundle so call sites can pass
// nil collectors without branching.
func metricsOf(m *observability.Metrics) *observability.Metrics {
	if m == nil {
		return &observability.Metrics{}
	}
	return m
}

// confirm asks the operator to re-type the target username, the same
// guard interactive database tools put in front of destructive commands.
func confirm(targetUsername string) bool {
	fmt.Printf("\nThis permanently deletes all data owned by %q. Type the username to continue: ", targetUsername)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == targetUsername
}

func printPreview(preview *cloneengine.PreviewResult) {
	fmt.Printf("Replacing data of %q (account %d) with a copy from %q (account %d)\n\n",
		preview.TargetUsername, preview.TargetAccountID,
		preview.SourceUsername, preview.SourceAccountID)

	kinds := unionKinds(preview.ToDelete, preview.ToCopy)
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tDELETE\tCOPY")
	for _, kind := range kinds {
		fmt.Fprintf(w, "%s\t%d\t%d\n", kind, preview.ToDelete[kind], preview.ToCopy[kind])
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", preview.ToDelete.Total(), preview.ToCopy.Total())
	_ = w.Flush()
}

func printResult(result *cloneengine.Result) {
	fmt.Printf("\nClone committed in %s: %d rows deleted, %d rows copied, %.1f MiB of images duplicated.\n",
		result.Duration.Round(10*time.Millisecond),
		result.DeletedCounts.Total(),
		result.CopiedCounts.Total(),
		float64(result.BlobBytesCopied)/(1024*1024))
}

// unionKinds merges the non-zero kinds of both count sets, sorted.
func unionKinds(a, b cloneengine.EntityCounts) []cloneengine.Kind {
	seen := make(map[cloneengine.Kind]struct{})
	var kinds []cloneengine.Kind
	for _, set := range []cloneengine.EntityCounts{a, b} {
		for _, kind := range set.Kinds() {
			if _, dup := seen[kind]; !dup {
				seen[kind] = struct{}{}
				kinds = append(kinds, kind)
			}
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
