package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudecole/go-bulletin/infrastructure/cache"
	"github.com/cloudecole/go-bulletin/internal/application"
	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

func newPalmaresCmd(opts *cliOptions) *cobra.Command {
	var (
		snapshotPath     string
		group            string
		excludeAbandoned bool
	)

	cmd := &cobra.Command{
		Use:   "palmares",
		Short: "Rank the students of a class on a period, a semester, or the year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := opts.loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			params := map[string]any{"group": group, "exclude_abandoned": excludeAbandoned}
			state, err := opts.runUnit(cmd.Context(), "palmares", params, snap, nil)
			if err != nil {
				return err
			}

			palmares, err := computed(state, "palmares", domain.KeyPalmares)
			if err != nil {
				return err
			}
			return opts.write(palmares)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "class snapshot file (.yaml, .yml, or .json)")
	cmd.Flags().StringVarP(&group, "group", "g", string(domain.GroupAnnual), "period group: P1..EXAM2, SEM1, SEM2, or ANNUAL")
	cmd.Flags().BoolVar(&excludeAbandoned, "exclude-abandoned", false, "leave students who abandoned out of the list")
	return cmd
}

func newRanksCmd(opts *cliOptions) *cobra.Command {
	var (
		snapshotPath string
		policy       string
		student      string
	)

	cmd := &cobra.Command{
		Use:   "ranks",
		Short: "Print the class rank table, or the ranks of one student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := opts.loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			params := map[string]any{}
			if policy != "" {
				params["policy"] = policy
			}

			if student == "" {
				state, err := opts.runUnit(cmd.Context(), "class_ranks", params, snap, nil)
				if err != nil {
					return err
				}
				ranks, err := computed(state, "class_ranks", domain.KeyClassRanks)
				if err != nil {
					return err
				}
				return opts.write(ranks)
			}

			target := func(s domain.State) domain.State {
				return domain.With(s, domain.KeyTargetStudent, domain.StudentID(student))
			}
			state, err := opts.runUnit(cmd.Context(), "student_ranks", params, snap, target)
			if err != nil {
				return err
			}
			ranks, err := computed(state, "student_ranks", domain.KeyStudentRanks)
			if err != nil {
				return err
			}
			return opts.write(ranks)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "class snapshot file (.yaml, .yml, or .json)")
	cmd.Flags().StringVarP(&policy, "policy", "p", "", "aggregation policy: strict or lenient (default strict for one student, lenient for the class)")
	cmd.Flags().StringVar(&student, "student", "", "rank a single student instead of the whole class")
	return cmd
}

func newGroupsCmd(opts *cliOptions) *cobra.Command {
	var (
		snapshotPath string
		mode         string
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Group the subjects of a class for the report card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := opts.loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			state, err := opts.runUnit(cmd.Context(), "subject_groups", map[string]any{"mode": mode}, snap, nil)
			if err != nil {
				return err
			}
			groups, err := computed(state, "subject_groups", domain.KeySubjectGroups)
			if err != nil {
				return err
			}
			return opts.write(groups)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "class snapshot file (.yaml, .yml, or .json)")
	cmd.Flags().StringVar(&mode, "mode", "auto", "grouping: auto, maxima, or domain")
	return cmd
}

func newRepechageCmd(opts *cliOptions) *cobra.Command {
	var (
		snapshotPath string
		skipUnknown  bool
	)

	cmd := &cobra.Command{
		Use:   "repechage",
		Short: "Convert recorded repêchage percentages into points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := opts.loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			params := map[string]any{"skip_unknown_subjects": skipUnknown}
			state, err := opts.runUnit(cmd.Context(), "repechage", params, snap, nil)
			if err != nil {
				return err
			}
			results, err := computed(state, "repechage", domain.KeyRepechages)
			if err != nil {
				return err
			}
			return opts.write(results)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "class snapshot file (.yaml, .yml, or .json)")
	cmd.Flags().BoolVar(&skipUnknown, "skip-unknown-subjects", false, "ignore repêchages on subjects missing from the snapshot")
	return cmd
}

// serviceFlags are the flags of the commands that run a full report
// configuration.
type serviceFlags struct {
	configPath string
	redisAddr  string
}

func (f *serviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "report configuration file (default: embedded configuration)")
	cmd.Flags().StringVar(&f.redisAddr, "redis", "", "Redis address used to cache reports, for example localhost:6379")
}

// newService compiles the report configuration and builds a ReportService
// with metrics and, when --redis is set, a Redis cache. The returned
// function releases the cache connection.
func (f *serviceFlags) newService(ctx context.Context, opts *cliOptions) (*application.ReportService, *application.CompiledReport, func(), error) {
	loader, err := application.NewReportLoader(opts.unitRegistry())
	if err != nil {
		return nil, nil, nil, err
	}

	var compiled *application.CompiledReport
	if f.configPath != "" {
		compiled, err = loader.LoadFromFile(ctx, f.configPath)
	} else {
		compiled, err = loader.LoadDefault(ctx)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	serviceOpts := []application.ServiceOption{
		application.WithLogger(opts.logger),
		application.WithMetrics(opts.recorder),
	}

	release := func() {}
	if f.redisAddr != "" {
		cfg := cache.DefaultRedisConfig()
		cfg.Addr = f.redisAddr
		store, err := cache.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		serviceOpts = append(serviceOpts, application.WithCache(store))
		release = func() {
			if err := store.Close(); err != nil {
				opts.logger.Warn("failed to close redis", "error", err)
			}
		}
	}

	service, err := application.NewReportService(compiled, serviceOpts...)
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return service, compiled, release, nil
}

func newReportCmd(opts *cliOptions) *cobra.Command {
	var (
		snapshotPath string
		service      serviceFlags
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the full report of one class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := opts.loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			svc, _, release, err := service.newService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			report, err := svc.Generate(cmd.Context(), snap)
			if err != nil {
				return err
			}
			return opts.write(report)
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "class snapshot file (.yaml, .yml, or .json)")
	service.register(cmd)
	return cmd
}

// batchEntry is one line of the batch output.
type batchEntry struct {
	File    string         `json:"file" yaml:"file"`
	ClassID domain.ClassID `json:"class_id,omitempty" yaml:"class_id,omitempty"`
	Report  *domain.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func newBatchCmd(opts *cliOptions) *cobra.Command {
	var (
		concurrency int
		service     serviceFlags
	)

	cmd := &cobra.Command{
		Use:   "batch FILE_OR_DIR...",
		Short: "Compute the reports of many classes concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := snapshotFiles(args)
			if err != nil {
				return err
			}

			svc, compiled, release, err := service.newService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			loader := application.NewSnapshotLoader(opts.logger)
			entries := make([]batchEntry, len(files))
			snaps := make([]*domain.Snapshot, 0, len(files))
			index := make([]int, 0, len(files))

			var loadErrs []error
			for i, path := range files {
				entries[i].File = path
				snap, err := loader.LoadFile(path)
				if err != nil {
					entries[i].Error = err.Error()
					loadErrs = append(loadErrs, err)
					continue
				}
				snaps = append(snaps, snap)
				index = append(index, i)
			}

			limit := concurrency
			if limit <= 0 {
				limit = compiled.Config.Batch.Concurrency
			}

			start := time.Now()
			results, runErr := application.NewBatchRunner(svc, limit, opts.logger).Run(cmd.Context(), snaps)
			for j, r := range results {
				e := &entries[index[j]]
				e.ClassID = r.ClassID
				if r.Err != nil {
					e.Error = r.Err.Error()
					continue
				}
				report := r.Report
				e.Report = &report
			}
			opts.recorder.RecordLatency("batch", time.Since(start), map[string]string{"status": statusOf(runErr)})

			if err := opts.write(entries); err != nil {
				return err
			}
			return errors.Join(append(loadErrs, runErr)...)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "classes computed at once (default: the configuration's batch.concurrency)")
	service.register(cmd)
	return cmd
}

// snapshotFiles expands directories into the snapshot files they contain,
// in lexical order.
func snapshotFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, ports.NewConfigError(arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(arg, entry.Name())
			if _, err := application.FormatFromPath(path); err == nil {
				files = append(files, path)
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no snapshot files found")
	}
	return files, nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
