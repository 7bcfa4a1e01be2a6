package main

// Upload a PDF and wait for its visualization:
//   go run ./cmd/studyviz -file notes.pdf -type mindmap -out mindmap.json

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"studyviz-backend/internal/client"
	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/visualizations"
)

func main() {
	filePath := flag.String("file", "", "Path to the PDF to upload")
	kindFlag := flag.String("type", string(visualizations.KindFlowchart), "Visualization type (flowchart, mindmap, cornell)")
	serverURL := flag.String("server", envOr("STUDYVIZ_SERVER", "http://localhost:8080"), "API base URL")
	outPath := flag.String("out", "", "Path to write the visualization JSON (optional)")
	interval := flag.Duration("interval", client.DefaultPollInterval, "Polling interval")
	maxWait := flag.Duration("max-wait", client.DefaultPollMaxWait, "Give up after this long")
	cleanup := flag.Bool("delete", false, "Delete the document after printing the result")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}
	kind, err := visualizations.ParseKind(*kindFlag)
	if err != nil {
		exitErr(fmt.Sprintf("unsupported type %q", *kindFlag))
	}
	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(*serverURL)
	doc, err := api.Upload(ctx, filepath.Base(*filePath), data, kind)
	if err != nil {
		exitErr(fmt.Sprintf("upload: %v", err))
	}
	fmt.Fprintf(os.Stderr, "uploaded %s as %s, waiting for %s\n", doc.FileName, doc.ID, kind.Label())

	poller := &client.Poller{Client: api, Interval: *interval, MaxWait: *maxWait}
	res, err := poller.WaitForResult(ctx, doc.ID)
	if err != nil {
		exitErr(fmt.Sprintf("wait: %v", err))
	}
	if res.Document.Status == documents.StatusFailed {
		msg := "unknown error"
		if res.Document.ErrorMessage != nil {
			msg = *res.Document.ErrorMessage
		}
		exitErr(fmt.Sprintf("processing failed: %s", msg))
	}

	viz, ok := latest(res.Visualizations, kind)
	if !ok {
		exitErr("document completed without a visualization")
	}
	pretty, err := prettyJSON([]byte(viz.Data))
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}

	if *cleanup {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.DeleteDocument(delCtx, doc.ID); err != nil {
			fmt.Fprintf(os.Stderr, "delete %s: %v\n", doc.ID, err)
		}
	}
}

// latest returns the newest visualization of kind.
func latest(vizzes []visualizations.Visualization, kind visualizations.Kind) (visualizations.Visualization, bool) {
	var (
		out   visualizations.Visualization
		found bool
	)
	for _, v := range vizzes {
		if v.Type != kind {
			continue
		}
		if !found || v.CreatedAt.After(out.CreatedAt) {
			out = v
			found = true
		}
	}
	return out, found
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
