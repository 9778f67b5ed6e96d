package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/logging"
	"go.uber.org/zap"
)

var (
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	from := msg.Header.Get("From")
	subject := msg.Header.Get("Subject")

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}
	body := core.StripQuotedReply(string(bodyBytes))

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", from)
	fmt.Printf("Subject: %s\n", subject)
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("\n")

	classifier := core.NewClassifier()

	startTime := time.Now()
	result := classifier.Classify(subject, body)
	bump := core.DetectBump(subject, body)
	threadKey := core.MakeThreadKey(subject)
	duration := time.Since(startTime)

	fmt.Printf("=== Results ===\n")
	fmt.Printf("Category: %s\n", result.Category)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	fmt.Printf("Tags: %s\n", strings.Join(result.Tags, ", "))
	fmt.Printf("Is bump: %t\n", bump.IsBump)
	fmt.Printf("Thread key: %q\n", threadKey)
	for _, reason := range result.Reasons {
		fmt.Printf("Reason: %s\n", reason)
	}
	if result.Category == core.CategoryGrant {
		fmt.Printf("Grant status: %s\n", result.GrantStatus)
		fmt.Printf("Eligibility: %s\n", result.Eligibility)
		fmt.Printf("Scope: %s\n", result.Scope)
		if result.GrantDeadlineAt != 0 {
			fmt.Printf("Deadline: %s\n", time.Unix(result.GrantDeadlineAt, 0).UTC().Format(time.RFC3339))
		}
	}
	for _, d := range result.Dates {
		fmt.Printf("Date mentioned: %s (%s)\n", d.Text, d.ISO)
	}
	for _, c := range result.Contacts {
		fmt.Printf("Contact: %s %s\n", c.Type, c.Value)
	}
	fmt.Printf("Processing time: %v\n", duration)
}
