package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/kailas-cloud/docchat/internal/version"
	"github.com/kailas-cloud/docchat/pkg/client"
)

var (
	serverURL = flag.String("server", envOr("DOCCHAT_URL", "http://localhost:8080"), "docchat server URL")
	apiKey    = flag.String("api-key", os.Getenv("DOCCHAT_API_KEY"), "API key sent as bearer token")
	maxTokens = flag.Int("max-tokens", 0, "Maximum tokens per reply (0 = server default)")
	chunks    = flag.Bool("chunks", false, "Include chunks in text output")
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: docchat-cli [flags] <command> [args]\n\n")
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  chat               interactive chat over uploaded documents\n")
	fmt.Fprintf(out, "  upload <file>...   upload PDF files for indexing\n")
	fmt.Fprintf(out, "  text <filename>    print extracted text of an uploaded file\n")
	fmt.Fprintf(out, "  health             show server health\n")
	fmt.Fprintf(out, "  version            print the client version\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*serverURL, client.WithAPIKey(*apiKey))

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "", "chat":
		err = runChat(ctx, c, os.Stdin, os.Stdout)
	case "upload":
		err = runUpload(ctx, c, flag.Args()[1:])
	case "text":
		if flag.NArg() < 2 {
			err = errors.New("text: filename required")
			break
		}
		err = runText(ctx, c, flag.Arg(1))
	case "health":
		err = runHealth(ctx, c)
	case "version":
		fmt.Printf("docchat-cli %s (%s, %s)\n", version.Version, version.Commit, version.Date)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
		os.Exit(1)
	}
}

func runChat(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, boldGreen("docchat"))
	fmt.Fprintf(out, "Server: %s\n", boldCyan(*serverURL))
	fmt.Fprintln(out, "Type your question and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Fprintln(out)

	var (
		history []client.Message
		opts    client.ChatOptions
	)
	if *maxTokens > 0 {
		opts.MaxTokens = *maxTokens
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		history = append(history, client.Message{Role: "user", Content: input})

		reply, err := c.Chat(ctx, history, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(out, red("Error: "+err.Error()))
			history = history[:len(history)-1]
			continue
		}

		fmt.Fprintln(out, boldCyan("Assistant: ")+reply.Response)
		for _, s := range reply.Sources {
			fmt.Fprintln(out, faint(fmt.Sprintf("  [%s #%d, %.2f]", s.PDFName, s.ChunkIndex, s.RelevanceScore)))
		}
		fmt.Fprintln(out)

		history = append(history, client.Message{Role: "assistant", Content: reply.Response})
	}
	return scanner.Err()
}

func runUpload(ctx context.Context, c *client.Client, paths []string) error {
	if len(paths) == 0 {
		return errors.New("upload: at least one file required")
	}
	files, err := c.Upload(ctx, paths...)
	if err != nil {
		return err
	}
	failed := 0
	for _, f := range files {
		if f.OK() {
			fmt.Printf("%s %s %s\n", boldGreen("ok"), f.Filename, faint("task "+f.TaskID))
			continue
		}
		failed++
		fmt.Printf("%s %s: %s\n", red("error"), f.Filename, f.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func runText(ctx context.Context, c *client.Client, filename string) error {
	doc, err := c.Text(ctx, filename, *chunks)
	if err != nil {
		return err
	}
	fmt.Println(boldCyan(doc.Filename), faint(doc.Status))
	fmt.Printf("chars=%d words=%d paragraphs=%d\n\n",
		doc.Stats.TotalChars, doc.Stats.TotalWords, doc.Stats.TotalParagraphs)
	fmt.Println(doc.Text)
	for i, ch := range doc.Chunks {
		fmt.Printf("\n%s\n%s\n", faint(fmt.Sprintf("--- chunk %d ---", i)), ch)
	}
	return nil
}

func runHealth(ctx context.Context, c *client.Client) error {
	h, err := c.Health(ctx)
	if h.Status != "" {
		status := boldGreen(h.Status)
		if h.Status != "ok" {
			status = red(h.Status)
		}
		fmt.Println("status:", status)
		for name, state := range h.Checks {
			fmt.Printf("  %-12s %s\n", name, state)
		}
	}
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
