package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abendrothj/doppel/internal/advisor"
	"github.com/abendrothj/doppel/internal/config"
	"github.com/abendrothj/doppel/internal/dashboard"
	"github.com/abendrothj/doppel/internal/logging"
	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/report"
	"github.com/abendrothj/doppel/internal/risk"
	"github.com/abendrothj/doppel/internal/scanner"
	"github.com/abendrothj/doppel/internal/specerr"
)

var (
	inputPath     string
	baseURL       string
	attackerToken string
	victimID      string
	concurrency   int
	timeoutSecs   int

	noMutationalFuzzing bool
	noPIIAnalysis       bool
	noSoftFailAnalysis  bool

	csvReport      bool
	markdownReport bool
	sarifReport    bool
	pdfReport      bool

	watch       bool
	ollamaModel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "doppel",
		Short: "Scan an API for Broken Object-Level Authorization (BOLA/IDOR) flaws",
		Long: `Doppel replays discovered requests with a victim identifier substituted
into parameters that look ownership-bearing, then classifies each response
as VULNERABLE, SECURE, or UNCERTAIN.`,
		RunE: runScan,
	}

	rootCmd.Flags().StringVar(&inputPath, "input", "", "spec file or directory (OpenAPI, Postman, or a Bruno collection) (required)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "override the spec's server URL (required unless the spec declares one)")
	rootCmd.Flags().StringVar(&attackerToken, "attacker-token", "", "bearer token for the scanning identity (required)")
	rootCmd.Flags().StringVar(&victimID, "victim-id", "", "resource identifier to substitute (required)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 50, "global in-flight request cap")
	rootCmd.Flags().IntVar(&timeoutSecs, "timeout", 30, "per-request timeout in seconds")

	rootCmd.Flags().BoolVar(&noMutationalFuzzing, "no-mutational-fuzzing", false, "disable SQLi/XSS/boundary mutation payloads, swap cases only")
	rootCmd.Flags().BoolVar(&noPIIAnalysis, "no-pii-analysis", false, "disable the optional PII advisor downgrade pass")
	rootCmd.Flags().BoolVar(&noSoftFailAnalysis, "no-soft-fail-analysis", false, "disable the soft-fail body regex (rule R7)")

	rootCmd.Flags().BoolVar(&csvReport, "csv-report", false, "write a CSV report")
	rootCmd.Flags().BoolVar(&markdownReport, "markdown-report", true, "write a Markdown report")
	rootCmd.Flags().BoolVar(&sarifReport, "sarif-report", false, "write a SARIF 2.1.0 report")
	rootCmd.Flags().BoolVar(&pdfReport, "pdf-report", false, "write a PDF report")

	rootCmd.Flags().BoolVar(&watch, "watch", false, "serve a live dashboard of findings as the scan runs")
	rootCmd.Flags().StringVar(&ollamaModel, "ollama-model", "llama3.1", "Ollama model tag used by the PII advisor")

	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("attacker-token")
	_ = rootCmd.MarkFlagRequired("victim-id")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(specerr.ExitConfigOrParse))
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(int(specerr.ExitConfigOrParse))
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	if baseURL == "" && !looksLikeItDeclaresAServer(inputPath) {
		logger.Warn("--base-url not set; relying on the spec's own server declaration")
	}

	opts := config.DefaultOptions()
	opts.Input = inputPath
	opts.BaseURL = baseURL
	opts.AttackerToken = attackerToken
	opts.VictimID = victimID
	opts.Concurrency = concurrency
	opts.Timeout = time.Duration(timeoutSecs) * time.Second
	opts.MutationalFuzzing = !noMutationalFuzzing
	opts.PIIAnalysis = !noPIIAnalysis
	opts.SoftFailAnalysis = !noSoftFailAnalysis
	opts.CSVReport = csvReport
	opts.MarkdownReport = markdownReport
	opts.SARIFReport = sarifReport
	opts.PDFReport = pdfReport
	opts.Watch = watch

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scanner.New(logger)
	logger.Info("scan %s starting against %s", s.ScanID, opts.Input)

	var hub *dashboard.Hub
	var dashSrv *http.Server
	if opts.Watch {
		hub = dashboard.NewHub()
		go hub.Run()
		dashSrv = &http.Server{Addr: ":8787", Handler: hub.Mux()}
		go func() {
			if err := dashSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("dashboard server stopped: %v", err)
			}
		}()
		logger.Info("live dashboard listening on http://127.0.0.1:8787")
		s.Dashboard = hub
	}

	if opts.PIIAnalysis {
		s.Advisor = advisor.New(ctx, cfg.OllamaURL, ollamaModel)
	}

	findings, err := s.Run(ctx, opts)
	if dashSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = dashSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err != nil {
		var parseErr *specerr.ParseError
		var secErr *specerr.SpecSecurityViolation
		if errors.As(err, &parseErr) || errors.As(err, &secErr) {
			fmt.Fprintf(os.Stderr, "doppel: %v\n", err)
			os.Exit(int(specerr.ExitConfigOrParse))
		}
		fmt.Fprintf(os.Stderr, "doppel: unrecoverable error: %v\n", err)
		os.Exit(int(specerr.ExitRuntime))
	}

	if err := writeReports(findings, s.ResourceMapper.Mappings(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "doppel: failed writing report: %v\n", err)
		os.Exit(int(specerr.ExitRuntime))
	}

	printSummary(findings)

	for _, f := range findings {
		if f.Verdict == model.VerdictVulnerable {
			os.Exit(int(specerr.ExitVulnerable))
		}
	}
	os.Exit(int(specerr.ExitNoVulnerabilities))
	return nil
}

func writeReports(findings []model.Finding, coverage []*risk.ResourceMapping, opts config.Options) error {
	writers := report.Selected(opts.CSVReport, opts.MarkdownReport, opts.SARIFReport, opts.PDFReport)
	now := time.Now()
	for _, w := range writers {
		data, err := w.Write(findings, coverage)
		if err != nil {
			return fmt.Errorf("%s: %w", w.Extension(), err)
		}
		name := report.Filename(w, now)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", name)
	}
	return nil
}

func printSummary(findings []model.Finding) {
	counts := map[model.Verdict]int{}
	for _, f := range findings {
		counts[f.Verdict]++
	}
	fmt.Printf("scan complete: %d vulnerable, %d uncertain, %d secure, %d error\n",
		counts[model.VerdictVulnerable], counts[model.VerdictUncertain],
		counts[model.VerdictSecure], counts[model.VerdictError])
}

// looksLikeItDeclaresAServer is a cheap pre-parse hint only, used to
// decide whether to warn about a missing --base-url before the parser
// itself runs; the parser's own resolved base URL remains the source
// of truth.
func looksLikeItDeclaresAServer(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte("servers:")) || bytes.Contains(data, []byte(`"servers"`))
}
