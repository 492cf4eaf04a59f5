package reading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubReader struct {
	name    string
	results []string
	err     error
	calls   int
}

func (s *stubReader) Read(_ context.Context, pages []PageImage, _ *ReadOptions) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.results != nil {
		return s.results, nil
	}
	return make([]string, len(pages)), nil
}

func (s *stubReader) Name() string { return s.name }
func (s *stubReader) Close() error { return nil }

func TestFallbackReader_FirstNonEmptyWins(t *testing.T) {
	first := &stubReader{name: "first", err: errors.New("model offline")}
	second := &stubReader{name: "second", results: []string{""}}
	third := &stubReader{name: "third", results: []string{"Section 1. Definitions"}}
	fourth := &stubReader{name: "fourth", results: []string{"should not run"}}

	chain := NewFallbackReader(first, second, third, fourth)
	results, err := chain.Read(context.Background(), []PageImage{{Page: 1}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if results[0] != "Section 1. Definitions" {
		t.Errorf("Read() = %q, want third reader's text", results[0])
	}

	for _, tt := range []struct {
		reader *stubReader
		want   int
	}{
		{first, 1}, {second, 1}, {third, 1}, {fourth, 0},
	} {
		if tt.reader.calls != tt.want {
			t.Errorf("%s called %d times, want %d", tt.reader.name, tt.reader.calls, tt.want)
		}
	}
}

func TestFallbackReader_AllFail(t *testing.T) {
	chain := NewFallbackReader(
		&stubReader{name: "a", err: errors.New("first error")},
		&stubReader{name: "b", err: errors.New("last error")},
	)

	_, err := chain.Read(context.Background(), []PageImage{{Page: 1}}, nil)
	if err == nil {
		t.Fatal("Read() expected error")
	}
	if !strings.Contains(err.Error(), "all readers failed") {
		t.Errorf("error = %v, want wrapped chain failure", err)
	}
	if !strings.Contains(err.Error(), "last error") {
		t.Errorf("error = %v, want last backend's error", err)
	}
}

func TestFallbackReader_AllEmptyNoError(t *testing.T) {
	chain := NewFallbackReader(&stubReader{name: "a", results: []string{"", ""}})

	results, err := chain.Read(context.Background(), []PageImage{{Page: 1}, {Page: 2}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Read() returned %d results, want 2", len(results))
	}
	for i, text := range results {
		if text != "" {
			t.Errorf("results[%d] = %q, want empty", i, text)
		}
	}
}

func TestFallbackReader_Name(t *testing.T) {
	chain := NewFallbackReader(&stubReader{name: "tesseract"}, &stubReader{name: "generative"})
	if got := chain.Name(); got != "fallback(tesseract,generative)" {
		t.Errorf("Name() = %q", got)
	}
}

// fakeRunner maps the trailing output-format argument to canned stdout.
type fakeRunner struct {
	text string
	tsv  string
	err  error
	runs []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.runs = append(f.runs, strings.Join(append([]string{name}, args...), " "))
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	if len(args) > 0 && args[len(args)-1] == "tsv" {
		return []byte(f.tsv), nil, nil
	}
	return []byte(f.text), nil, nil
}

func tsvWithConf(confs ...int) string {
	var b strings.Builder
	b.WriteString("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n")
	for i, c := range confs {
		fmt.Fprintf(&b, "5\t1\t1\t1\t1\t%d\t10\t10\t50\t12\t%d\tword%d\n", i+1, c, i+1)
	}
	return b.String()
}

func TestTesseractReader_Read(t *testing.T) {
	runner := &fakeRunner{text: "THIS LOAN AGREEMENT is dated as of", tsv: tsvWithConf(91, 88, 95)}
	reader := NewTesseractReader(TesseractConfig{MinConfidence: 0.6}, ModeAccurate, runner)

	results, err := reader.Read(context.Background(), []PageImage{{Page: 3, MIMEType: "image/png", Data: []byte{0x89}}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.Contains(results[0], "THIS LOAN AGREEMENT") {
		t.Errorf("Read() = %q, want recognized text", results[0])
	}
}

func TestTesseractReader_LowConfidenceTreatedAsEmpty(t *testing.T) {
	runner := &fakeRunner{text: "q3$k zzv 8_", tsv: tsvWithConf(12, 20, 8)}
	reader := NewTesseractReader(TesseractConfig{MinConfidence: 0.6}, ModeAccurate, runner)

	results, err := reader.Read(context.Background(), []PageImage{{Page: 1, Data: []byte{0x89}}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if results[0] != "" {
		t.Errorf("Read() = %q, want empty for low-confidence page", results[0])
	}
}

func TestTesseractReader_FastModeSkipsConfidenceGate(t *testing.T) {
	runner := &fakeRunner{text: "blurry but accepted"}
	reader := NewTesseractReader(TesseractConfig{MinConfidence: 0.6}, ModeFast, runner)

	results, err := reader.Read(context.Background(), []PageImage{{Page: 1, Data: []byte{0x89}}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if results[0] != "blurry but accepted" {
		t.Errorf("Read() = %q", results[0])
	}
	for _, run := range runner.runs {
		if strings.HasSuffix(run, " tsv") {
			t.Errorf("fast mode ran a TSV confidence pass: %q", run)
		}
	}
}

func TestTesseractReader_AllPagesFail(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	reader := NewTesseractReader(TesseractConfig{}, ModeAccurate, runner)

	_, err := reader.Read(context.Background(), []PageImage{{Page: 1, Data: []byte{0x89}}}, nil)
	if err == nil {
		t.Fatal("Read() expected error when every page fails")
	}
}

func TestTesseractReader_LanguageOverride(t *testing.T) {
	runner := &fakeRunner{text: "texte"}
	reader := NewTesseractReader(TesseractConfig{Language: "eng"}, ModeFast, runner)

	_, err := reader.Read(context.Background(),
		[]PageImage{{Page: 1, Data: []byte{0x89}}},
		&ReadOptions{Language: "fra"},
	)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(runner.runs) == 0 || !strings.Contains(runner.runs[0], "-l fra") {
		t.Errorf("runs = %v, want -l fra", runner.runs)
	}
}

type promptClient struct {
	prompts []string
}

func (p *promptClient) Generate(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return "ARTICLE IX. Miscellaneous provisions follow.", nil
}

func TestGenerativeReader_LabelsOutput(t *testing.T) {
	client := &promptClient{}
	reader := NewGenerativeReader(client, time.Second)

	results, err := reader.Read(context.Background(), []PageImage{{Page: 7}}, nil)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.HasPrefix(results[0], "[AI-Generated Content for Page 7]") {
		t.Errorf("Read() = %q, want AI-generated label prefix", results[0])
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "page 7") {
		t.Errorf("prompts = %v, want page number in prompt", client.prompts)
	}
}

func TestGenerativeReader_NoClient(t *testing.T) {
	reader := NewGenerativeReader(nil, 0)
	if _, err := reader.Read(context.Background(), []PageImage{{Page: 1}}, nil); err == nil {
		t.Fatal("Read() expected error with nil client")
	}
}
