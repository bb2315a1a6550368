package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"driftlab/internal/sim"
	"driftlab/internal/stats"
	"driftlab/internal/storage"
	driftapi "driftlab/pkg/driftlab"
)

const (
	exportsDir    = "exports"
	defaultDBPath = "driftlab.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "models":
		return runModels(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "batches":
		return runBatches(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "trajectory":
		return runTrajectory(ctx, args[1:])
	case "mean":
		return runMean(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runModels(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit models list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	models, err := client.Models(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(models)
	}
	for _, info := range models {
		fmt.Printf("model=%s batches=%d", info.Name, info.BatchCount)
		if info.LastBatch != "" {
			fmt.Printf(" last_batch=%s", info.LastBatch)
		}
		fmt.Println()
	}
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	profilesPath := fs.String("profiles", "", "optional parameter profiles YAML path")
	profileName := fs.String("profile", "", "named profile from the profiles file")
	batchID := fs.String("batch-id", "", "explicit batch id (optional)")
	modelName := fs.String("model", "unbiased_transmission", "transmission model name")
	population := fs.Int("pop", 100, "population size")
	generations := fs.Int("gens", 100, "generation count")
	runs := fs.Int("runs", 10, "independent runs per batch")
	workers := fs.Int("workers", 4, "worker count")
	seed := fs.Int64("seed", 1, "rng seed")
	p0 := fs.Float64("p0", 0.5, "initial trait1 frequency")
	pA0 := fs.Float64("pa0", 0, "initial frequency of trait A (three-trait mutation)")
	pB0 := fs.Float64("pb0", 0, "initial frequency of trait B (three-trait mutation)")
	q0 := fs.Float64("q0", 0, "initial indicator-trait frequency (linked model, ignored at full linkage)")
	mu := fs.Float64("mu", 0, "mutation probability per agent per generation")
	muB := fs.Float64("mu-b", 0, "one-way mutation probability (biased mutation)")
	s := fs.Float64("s", 0, "bias strength")
	linkage := fs.Float64("linkage", 0, "probability an agent inherits both traits from one demonstrator")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = driftapi.RunRequest{
			Model:       *modelName,
			BatchID:     *batchID,
			Population:  *population,
			Generations: *generations,
			Runs:        *runs,
			Workers:     *workers,
			Seed:        *seed,
			P0:          *p0,
			PA0:         *pA0,
			PB0:         *pB0,
			Q0:          *q0,
			Mu:          *mu,
			MuB:         *muB,
			S:           *s,
			Linkage:     *linkage,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"model":    *modelName,
			"batch-id": *batchID,
			"pop":      *population,
			"gens":     *generations,
			"runs":     *runs,
			"workers":  *workers,
			"seed":     *seed,
			"p0":       *p0,
			"pa0":      *pA0,
			"pb0":      *pB0,
			"q0":       *q0,
			"mu":       *mu,
			"mu-b":     *muB,
			"s":        *s,
			"linkage":  *linkage,
		})
	}
	if *profileName != "" {
		if *profilesPath == "" {
			return errors.New("profile requires a profiles file (-profiles)")
		}
		profiles, err := loadProfiles(*profilesPath)
		if err != nil {
			return err
		}
		profile, err := findProfile(profiles, *profileName)
		if err != nil {
			return err
		}
		applyProfile(&req, profile)
	}

	client, err := driftapi.New(driftapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(summary)
	}
	fmt.Printf("batch completed batch_id=%s model=%s pop=%d gens=%d runs=%d seed=%d\n",
		summary.BatchID, summary.Model, req.Population, req.Generations, req.Runs, req.Seed)
	for i, mean := range summary.Mean {
		fmt.Printf("generation=%d mean_freq=%.6f variance=%.6f\n", i+1, mean, summary.Variance[i])
	}
	fmt.Printf("final_mean_freq=%.6f\n", summary.FinalMean)
	return nil
}

func runBatches(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batches", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max batches to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit batches list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	batches, err := client.Batches(ctx, driftapi.BatchesRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no batches found")
		return nil
	}
	if *jsonOut {
		return printJSON(batches)
	}
	for _, item := range batches {
		fmt.Printf("batch_id=%s model=%s pop=%d gens=%d runs=%d seed=%d tracks=%d created=%s\n",
			item.BatchID, item.Model, item.Population, item.Generations, item.Runs, item.Seed, item.Tracks, item.CreatedAtUTC)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	batchID := fs.String("batch", "", "batch id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit batch as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchID == "" {
		return errors.New("show requires -batch")
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	item, err := client.Batch(ctx, *batchID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(item)
	}
	fmt.Printf("batch_id=%s\nmodel=%s\npopulation=%d\ngenerations=%d\nruns=%d\nseed=%d\ntracks=%d\ncreated=%s\n",
		item.BatchID, item.Model, item.Population, item.Generations, item.Runs, item.Seed, item.Tracks, item.CreatedAtUTC)
	return nil
}

func runTrajectory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trajectory", flag.ContinueOnError)
	batchID := fs.String("batch", "", "batch id")
	track := fs.Int("track", 1, "trajectory track (2 only for linked models)")
	runIdx := fs.Int("run", 1, "1-based run index")
	step := fs.Int("step", 1, "print every step-th generation")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit trajectory points as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchID == "" {
		return errors.New("trajectory requires -batch")
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trajectory, err := client.Trajectory(ctx, driftapi.TrajectoryRequest{BatchID: *batchID, Track: *track})
	if err != nil {
		return err
	}
	if *runIdx < 1 || *runIdx > trajectory.Runs {
		return fmt.Errorf("run index out of range: %d (batch has %d runs)", *runIdx, trajectory.Runs)
	}
	matrix, err := sim.MatrixFromRows(trajectory.Rows)
	if err != nil {
		return err
	}

	points := stats.BuildRunPlot(matrix, *runIdx-1, *step)
	if *jsonOut {
		return printJSON(points)
	}
	fmt.Printf("batch_id=%s track=%d run=%d\n", *batchID, *track, *runIdx)
	for _, point := range points {
		fmt.Printf("generation=%d freq=%.6f\n", point.Generation, point.Value)
	}
	return nil
}

func runMean(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mean", flag.ContinueOnError)
	batchID := fs.String("batch", "", "batch id")
	track := fs.Int("track", 1, "trajectory track (2 only for linked models)")
	step := fs.Int("step", 1, "print every step-th generation")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit mean points as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchID == "" {
		return errors.New("mean requires -batch")
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trajectory, err := client.Trajectory(ctx, driftapi.TrajectoryRequest{BatchID: *batchID, Track: *track})
	if err != nil {
		return err
	}
	matrix, err := sim.MatrixFromRows(trajectory.Rows)
	if err != nil {
		return err
	}

	points := stats.BuildMeanPlot(matrix, *step)
	if *jsonOut {
		return printJSON(points)
	}
	fmt.Printf("batch_id=%s track=%d runs=%d\n", *batchID, *track, trajectory.Runs)
	for _, point := range points {
		fmt.Printf("generation=%d mean_freq=%.6f\n", point.Generation, point.Value)
	}
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	batchA := fs.String("a", "", "first batch id")
	batchB := fs.String("b", "", "second batch id")
	track := fs.Int("track", 1, "trajectory track (2 only for linked models)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit comparison as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchA == "" || *batchB == "" {
		return errors.New("compare requires -a and -b")
	}

	client, err := driftapi.New(driftapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	cmp, err := client.Compare(ctx, driftapi.CompareRequest{
		BatchA: *batchA,
		BatchB: *batchB,
		Track:  *track,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(cmp)
	}
	fmt.Printf("compare a=%s b=%s track=%d order=%s final_mean_a=%.6f final_mean_b=%.6f\n",
		cmp.BatchA, cmp.BatchB, cmp.Track, cmp.Order, cmp.FinalMeanA, cmp.FinalMeanB)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	batchID := fs.String("batch", "", "batch id")
	latest := fs.Bool("latest", false, "export the most recent batch")
	outDir := fs.String("out", "", "output directory (defaults to exports/)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := driftapi.New(driftapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, driftapi.ExportRequest{
		BatchID: *batchID,
		Latest:  *latest,
		OutDir:  *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported batch_id=%s dir=%s\n", exported.BatchID, filepath.Clean(exported.Directory))
	return nil
}

func printJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: driftctl <init|reset|models|run|batches|show|trajectory|mean|compare|export> [flags]", msg)
}
