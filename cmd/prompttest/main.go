package main

// Run extraction and generation locally without the API:
//   go run ./cmd/prompttest -pdf notes.pdf -type cornell

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"studyviz-backend/internal/extract"
	"studyviz-backend/internal/llm"
	openai "studyviz-backend/internal/llm/openai"
	"studyviz-backend/internal/shared/config"
	"studyviz-backend/internal/visualizations"
)

func main() {
	cfg := config.Load()

	pdfPath := flag.String("pdf", "", "Path to PDF file")
	kindFlag := flag.String("type", string(visualizations.KindFlowchart), "Visualization type")
	outPath := flag.String("out", "", "Path to write raw JSON output (optional)")
	textOnly := flag.Bool("text", false, "Print the extracted text and exit")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*pdfPath) == "" {
		exitErr("pdf path is required")
	}
	kind, err := visualizations.ParseKind(*kindFlag)
	if err != nil {
		exitErr(fmt.Sprintf("unsupported type: %s", *kindFlag))
	}

	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		exitErr(fmt.Sprintf("read pdf: %v", err))
	}

	ctx := context.Background()
	text, err := extract.PDFExtractor{}.Extract(ctx, data)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}
	if err := extract.CheckQuality(text); err != nil {
		exitErr(err.Error())
	}
	if *textOnly {
		fmt.Println(text)
		return
	}

	client, err := buildClient(cfg, *provider, *model)
	if err != nil {
		exitErr(err.Error())
	}

	raw, err := client.Generate(ctx, llm.GenerateInput{Kind: kind, Text: text})
	if err != nil {
		exitErr(fmt.Sprintf("llm generate: %v", err))
	}
	normalized, err := visualizations.Normalize(kind, raw)
	if err != nil {
		exitErr(fmt.Sprintf("invalid %s: %v", kind.Label(), err))
	}

	pretty, err := prettyJSON([]byte(normalized))
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
}

func buildClient(cfg config.Config, provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return openai.NewClient(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   model,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
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
