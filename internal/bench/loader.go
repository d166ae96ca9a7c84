package bench

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// corpusLine and queryLine mirror the on-disk JSONL record shape.
type corpusLine struct {
	ID    string `json:"_id"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

type queryLine struct {
	ID   string `json:"_id"`
	Text string `json:"text"`
}

// LoadDataset reads a benchmark dataset from dir, which must contain:
//
//	corpus.jsonl  — one {"_id", "text", "title"} object per line
//	queries.jsonl — one {"_id", "text"} object per line
//	qrels.tsv     — tab-separated "query-id\tcorpus-id\tscore", with an
//	                optional header line (any non-numeric score column
//	                is treated as a header and skipped)
func LoadDataset(dir string) (*Dataset, error) {
	corpus, err := loadCorpus(filepath.Join(dir, "corpus.jsonl"))
	if err != nil {
		return nil, err
	}
	queries, err := loadQueries(filepath.Join(dir, "queries.jsonl"))
	if err != nil {
		return nil, err
	}
	qrels, err := loadQrels(filepath.Join(dir, "qrels.tsv"))
	if err != nil {
		return nil, err
	}
	return &Dataset{Corpus: corpus, Queries: queries, Qrels: qrels}, nil
}

func loadCorpus(path string) ([]CorpusItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var items []CorpusItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec corpusLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse corpus line: %w", err)
		}
		items = append(items, CorpusItem{ID: rec.ID, Text: rec.Text, Title: rec.Title})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return items, nil
}

func loadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queries file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var queries []Query
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec queryLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse query line: %w", err)
		}
		queries = append(queries, Query{ID: rec.ID, Text: rec.Text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}
	return queries, nil
}

func loadQrels(path string) (Qrels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open qrels file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	qrels := Qrels{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed qrels line %q: expected 3 tab-separated fields", line)
		}
		score, err := strconv.Atoi(fields[2])
		if err != nil {
			continue // header line ("query-id\tcorpus-id\tscore")
		}
		queryID, corpusID := fields[0], fields[1]
		if qrels[queryID] == nil {
			qrels[queryID] = map[string]int{}
		}
		qrels[queryID][corpusID] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read qrels file: %w", err)
	}
	return qrels, nil
}
