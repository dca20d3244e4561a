package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelier/scancine/internal/classify"
	"github.com/avelier/scancine/internal/config"
	"github.com/avelier/scancine/internal/diagnosis"
	"github.com/avelier/scancine/internal/observability"
	"github.com/avelier/scancine/internal/pipeline"
	"github.com/avelier/scancine/internal/store"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	input := flag.String("input", "", "Directory of scan files to ingest (alternative to positional file arguments)")
	endpoint := flag.String("endpoint", "", "Analysis endpoint URL (default: built-in mock service)")
	storePath := flag.String("store", "", "Durable record database path (default: in-memory only)")
	configFile := flag.String("config", "", "Load configuration from YAML file")
	output := flag.String("output", "", "Directory for encoded sequence videos (default: temporary)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g., ':9100')")

	patientName := flag.String("name", "", "Patient name (auto-filled from scan metadata when omitted)")
	patientAge := flag.Int("age", 0, "Patient age")
	patientGender := flag.String("gender", "", "Patient gender")
	scanType := flag.String("scan-type", "", "Scan type (auto-filled from scan metadata when omitted)")

	listRecords := flag.Bool("list", false, "List stored diagnosis records and exit")
	getRecord := flag.String("get", "", "Print the diagnosis record with this id and exit")
	deleteRecord := flag.String("delete", "", "Delete the diagnosis record with this id and exit")

	quiet := flag.Bool("quiet", false, "Suppress progress output")
	verbose := flag.Bool("verbose", false, "Log at debug level")
	showVersion := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help message")

	flag.Parse()

	if *showVersion {
		fmt.Printf("scancine %s\n", version)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	// Flags override the file.
	if *endpoint != "" {
		cfg.EndpointURL = *endpoint
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}

	observability.SetVerbose(*verbose)
	log := observability.NewLogger("scancine", version, os.Stderr)

	if *metricsAddr != "" {
		log.Info("serving metrics on " + *metricsAddr)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(err, "metrics listener stopped")
			}
		}()
	}

	recordStore, closeStore, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening record store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	// Record management modes exit before any ingestion.
	switch {
	case *listRecords:
		if err := runList(recordStore); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case *getRecord != "":
		if err := runGet(recordStore, *getRecord); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case *deleteRecord != "":
		if err := recordStore.Delete(*deleteRecord); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Record %s deleted\n", *deleteRecord)
		os.Exit(0)
	}

	files, err := collectFiles(*input, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input files (use --input <dir> or positional file arguments)")
		printUsage()
		os.Exit(1)
	}

	var submitter pipeline.Submitter
	if cfg.EndpointURL != "" {
		submitter = diagnosis.NewClient(cfg.EndpointURL, log)
	} else {
		submitter = inProcessMock{svc: diagnosis.NewMockService(cfg.MockDelay())}
	}

	p := pipeline.New(pipeline.Options{
		Config:    cfg,
		Submitter: submitter,
		Store:     recordStore,
		Log:       log,
		OutputDir: *output,
	})
	if !*quiet {
		p.OnStatus(func(s pipeline.Status) {
			fmt.Printf("• %s\n", s)
		})
	}

	form := pipeline.PatientForm{
		Name:     *patientName,
		Age:      *patientAge,
		Gender:   *patientGender,
		ScanType: *scanType,
	}

	var progress func(completed, total int)
	if !*quiet {
		progress = func(completed, total int) {
			fmt.Printf("  decoding %d/%d\n", completed, total)
		}
	}

	res, err := p.Ingest(context.Background(), files, form, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ Ingest complete!")
	if res.Warning != "" {
		fmt.Printf("  Warning: %s\n", res.Warning)
	}
	if res.Metadata != nil {
		fmt.Printf("  Patient:  %s (%s)\n", res.Metadata.PatientName, res.Metadata.PatientID)
		fmt.Printf("  Study:    %s %s\n", res.Metadata.Modality, res.Metadata.StudyDescription)
	}
	if res.Sequence != nil {
		fmt.Printf("  Sequence: %s (%s, %d frames)\n", res.Sequence.VideoPath, res.Sequence.MimeType, len(res.Sequence.Frames))
	}
	fmt.Printf("  Record:   %s [%s]\n", res.Record.ID, res.Record.Status)
	if res.Record.Report != nil {
		fmt.Printf("  Report:   %s (confidence %.0f%%)\n", res.Record.Report.Summary, res.Record.Report.Confidence*100)
	}
}

// inProcessMock adapts the mock service to the pipeline's submitter.
type inProcessMock struct {
	svc *diagnosis.MockService
}

func (m inProcessMock) Submit(ctx context.Context, sub diagnosis.Submission) (*diagnosis.DiagnosisRecord, error) {
	return m.svc.Diagnose(sub), nil
}

// openStore builds the dual store, with the durable layer only when a
// path is configured.
func openStore(cfg *config.Config, log *observability.Logger) (store.RecordStore, func(), error) {
	if cfg.StorePath == "" {
		return store.NewDualStore(nil, log), func() {}, nil
	}
	durable, err := store.OpenBoltStore(cfg.StorePath, cfg.PlaceholderPath)
	if err != nil {
		return nil, nil, err
	}
	return store.NewDualStore(durable, log), func() { durable.Close() }, nil
}

// collectFiles gathers the selection from a directory or positional args.
func collectFiles(inputDir string, args []string) ([]classify.File, error) {
	var paths []string
	if inputDir != "" {
		entries, err := os.ReadDir(inputDir)
		if err != nil {
			return nil, fmt.Errorf("reading input directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(inputDir, e.Name()))
		}
	}
	paths = append(paths, args...)
	sort.Strings(paths)

	files := make([]classify.File, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("input file %s: %w", p, err)
		}
		files = append(files, classify.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p))),
			Path:        p,
		})
	}
	return files, nil
}

func runList(s store.RecordStore) error {
	recs, err := s.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No records.")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s  %-10s  %-20s  %s\n", r.ID, r.Status, r.Patient.Name, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runGet(s store.RecordStore, id string) error {
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	fmt.Printf("Record:   %s [%s]\n", r.ID, r.Status)
	fmt.Printf("Patient:  %s, age %d, %s\n", r.Patient.Name, r.Patient.Age, r.Patient.Gender)
	fmt.Printf("Scan:     %s on %s\n", r.Patient.ScanType, r.Patient.ScanDate)
	if strings.HasPrefix(r.Image, "data:") {
		fmt.Printf("Image:    inline payload (%d bytes)\n", len(r.Image))
	} else if r.Image != "" {
		fmt.Printf("Image:    %s\n", r.Image)
	}
	if r.Report != nil {
		fmt.Printf("Summary:  %s\n", r.Report.Summary)
		fmt.Printf("Confidence: %.0f%%\n", r.Report.Confidence*100)
		for _, f := range r.Report.Findings {
			fmt.Printf("  - %s\n", f)
		}
		if len(r.Report.Recommendations) > 0 {
			fmt.Println("Recommendations:")
			for _, rec := range r.Report.Recommendations {
				fmt.Printf("  - %s\n", rec)
			}
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  scancine [options] <file>...")
	fmt.Fprintln(os.Stderr, "  scancine --input <dir> [options]")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("scancine")
	fmt.Println("========")
	fmt.Println()
	fmt.Println("Ingest DICOM/image studies, encode slice sequences to video, and")
	fmt.Println("submit them for diagnosis.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scancine [options] <file>...")
	fmt.Println("  scancine --input <dir> [options]")
	fmt.Println()
	fmt.Println("Ingestion options:")
	fmt.Println("  --input <DIR>         Ingest every file in the directory")
	fmt.Println("  --endpoint <URL>      Analysis endpoint (default: built-in mock)")
	fmt.Println("  --store <PATH>        Durable record database (default: in-memory only)")
	fmt.Println("  --config <PATH>       Load configuration from YAML file")
	fmt.Println("  --name <NAME>         Patient name (auto-filled from metadata when omitted)")
	fmt.Println("  --age <N>             Patient age")
	fmt.Println("  --gender <G>          Patient gender")
	fmt.Println("  --scan-type <MOD>     Scan type, e.g. MR, CT (auto-filled when omitted)")
	fmt.Println("  --output <DIR>        Directory for encoded sequence videos")
	fmt.Println()
	fmt.Println("Record management:")
	fmt.Println("  --list                List stored diagnosis records")
	fmt.Println("  --get <ID>            Print one record")
	fmt.Println("  --delete <ID>         Delete one record")
	fmt.Println()
	fmt.Println("Other:")
	fmt.Println("  --metrics-addr <ADDR> Serve Prometheus metrics (e.g., ':9100')")
	fmt.Println("  --quiet               Suppress progress output")
	fmt.Println("  --version             Show version")
	fmt.Println("  --help                Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Ingest an MR series and encode it to video")
	fmt.Println("  scancine --input ./study --store records.db")
	fmt.Println()
	fmt.Println("  # Single X-ray image against a real endpoint")
	fmt.Println("  scancine --endpoint http://localhost:9090/diagnose chest.dcm")
	fmt.Println()
	fmt.Println("  # Browse stored records")
	fmt.Println("  scancine --store records.db --list")
	fmt.Println()
	fmt.Println("Sequence encoding requires ffmpeg on PATH; container selection")
	fmt.Println("falls back through mp4, webm, and avi depending on the encoders")
	fmt.Println("your ffmpeg build supports.")
}
