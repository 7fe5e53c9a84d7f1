package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/kavinb/docshorts/internal/models"
)

// maxExtractedChars caps the content handed to script generation; anything
// beyond it adds cost without adding scenes.
const maxExtractedChars = 20000

var (
	scriptTagPattern  = regexp.MustCompile(`(?is)<(script|style|noscript|head)[^>]*>.*?</(script|style|noscript|head)>`)
	htmlTagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractService turns a job's source (topic, URL, or PDF path) into plain
// text for the script generator.
type ExtractService struct {
	client    *http.Client
	pdftotext string
}

func NewExtractService() *ExtractService {
	return &ExtractService{
		client:    &http.Client{Timeout: 60 * time.Second},
		pdftotext: "pdftotext",
	}
}

// Extract dispatches on the source type. Topics pass through unchanged; URLs
// are fetched and stripped to text; PDF paths go through pdftotext.
func (s *ExtractService) Extract(ctx context.Context, sourceType models.SourceType, source string) (string, error) {
	switch sourceType {
	case models.SourceTopic:
		return source, nil
	case models.SourceURL:
		return s.extractURL(ctx, source)
	case models.SourcePDF:
		return s.extractPDF(ctx, source)
	default:
		return "", fmt.Errorf("unknown source type %q", sourceType)
	}
}

func (s *ExtractService) extractURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "docshorts/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch of %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	text := StripHTML(string(body))
	if text == "" {
		return "", fmt.Errorf("no readable text extracted from %s", url)
	}

	log.Printf("[Extract] %s yielded %d chars", url, len(text))
	return clampText(text), nil
}

func (s *ExtractService) extractPDF(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("pdf not found: %w", err)
	}

	// "-" sends the extracted text to stdout
	cmd := exec.CommandContext(ctx, s.pdftotext, path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ToolMissingError{Tool: s.pdftotext}
		}
		return "", fmt.Errorf("pdftotext failed for %s: %w (%s)", path, err, lastLine(stderr.String()))
	}

	text := strings.TrimSpace(whitespacePattern.ReplaceAllString(stdout.String(), " "))
	if text == "" {
		return "", fmt.Errorf("no text extracted from %s", path)
	}

	log.Printf("[Extract] %s yielded %d chars", path, len(text))
	return clampText(text), nil
}

// StripHTML reduces an HTML document to its visible text: script/style/head
// blocks are removed wholesale, remaining tags are dropped, and whitespace
// is collapsed.
func StripHTML(html string) string {
	text := scriptTagPattern.ReplaceAllString(html, " ")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(text)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func clampText(text string) string {
	if len(text) > maxExtractedChars {
		return text[:maxExtractedChars]
	}
	return text
}
