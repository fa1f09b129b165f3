package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"fileforge/internal/catalog"
	"fileforge/internal/domain"
	"fileforge/internal/download"
	"fileforge/internal/infra"
	"fileforge/internal/lifecycle"
	"fileforge/internal/params"
	"fileforge/internal/poller"
	"fileforge/internal/render"
	"fileforge/internal/storage"
	"fileforge/internal/upload"
)

// setFlags collects repeated -set key=value options.
type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		opFlag       string
		listFlag     bool
		optionsFlag  bool
		downloadFlag bool
		sets         setFlags
	)

	flag.StringVar(&opFlag, "op", "", "operation to run (see -list)")
	flag.Var(&sets, "set", "option as key=value, repeatable (see -options)")
	flag.BoolVar(&listFlag, "list", false, "list operations and their formats, then exit")
	flag.BoolVar(&optionsFlag, "options", false, "show the options of -op with their defaults, then exit")
	flag.BoolVar(&downloadFlag, "download", false, "save the finished output into DOWNLOAD_DIR")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: fileforge -op <operation> [-set key=value ...] [-download] <file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "fileforge").Logger()

	client, err := infra.NewHTTPClient(cfg.RequestTimeout)
	if err != nil {
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, source := catalog.NewLoader(catalog.Options{BaseURL: cfg.BaseURL, HTTPClient: client, Logger: &logger}).Load(ctx)
	logger.Debug().Str("source", string(source)).Msg("format catalog loaded")

	if listFlag {
		render.PrintCatalog(os.Stdout, cat)
		return
	}

	op, err := domain.ParseOperation(strings.TrimSpace(opFlag))
	if err != nil {
		exitWithError(fmt.Errorf("-op: %w (see -list)", err))
	}
	entry, _ := cat.Entry(op)
	controls := params.Render(op, entry)
	if optionsFlag {
		fmt.Printf("%s options:\n", op.Label())
		render.PrintControls(os.Stdout, controls)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	file, err := domain.FileFromPath(flag.Arg(0))
	if err != nil {
		exitWithError(err)
	}
	if err := catalog.Validate(file.Name, entry); err != nil {
		exitWithError(errors.New(domain.DisplayMessage(err)))
	}
	for _, kv := range sets {
		key, value, _ := strings.Cut(kv, "=")
		if err := params.Set(controls, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			exitWithError(err)
		}
	}
	bag, err := params.Collect(op, controls)
	if err != nil {
		exitWithError(err)
	}

	ctrl := lifecycle.New(lifecycle.Options{
		BaseURL: cfg.BaseURL,
		Uploader: upload.NewManager(upload.Options{
			BaseURL:    cfg.BaseURL,
			HTTPClient: infra.WithTimeout(client, cfg.UploadTimeout),
			Logger:     &logger,
		}),
		Poller: poller.New(poller.Options{
			BaseURL:                cfg.BaseURL,
			HTTPClient:             client,
			Interval:               cfg.PollInterval,
			MaxConsecutiveFailures: cfg.MaxPollFailures,
			Logger:                 &logger,
		}),
		Renderer: render.NewTerminal(os.Stdout, 10),
		Logger:   &logger,
	})
	ctrl.FileChanged(file)
	if err := ctrl.Start(file, op, bag); err != nil {
		exitWithError(err)
	}

	go func() {
		<-ctx.Done()
		ctrl.Reset()
	}()

	snap, _ := ctrl.Wait(context.Background())
	if !snap.State.Finished() {
		os.Exit(130)
	}
	if snap.State == lifecycle.StateError {
		os.Exit(1)
	}
	if downloadFlag {
		store, err := storage.NewFileStore(cfg.DownloadDir)
		if err != nil {
			exitWithError(err)
		}
		path, n, err := download.NewFetcher(infra.WithTimeout(client, 0), store, &logger).Fetch(ctx, *snap.Result)
		if err != nil {
			exitWithError(errors.New(domain.DisplayMessage(err)))
		}
		fmt.Printf("Saved %s (%s)\n", path, humanize.Bytes(uint64(n)))
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
