package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"marketpulse/internal/application/port"
	"marketpulse/internal/domain"
)

// FormatVersion is bumped whenever the envelope shape changes.
const FormatVersion = 1

type MarketFile struct {
	Version     int                   `json:"version"`
	PublishedAt time.Time             `json:"published_at"`
	Exchanges   domain.AggregateState `json:"exchanges"`
}

type SentimentFile struct {
	Version   int                     `json:"version"`
	Sentiment domain.SentimentSummary `json:"sentiment"`
}

// FilePublisher overwrites two well-known JSON files. Each write goes to a
// temp file in the same directory and is renamed over the target.
type FilePublisher struct {
	marketPath    string
	sentimentPath string
}

func NewFilePublisher(marketPath, sentimentPath string) *FilePublisher {
	return &FilePublisher{marketPath: marketPath, sentimentPath: sentimentPath}
}

func (p *FilePublisher) MarketPath() string    { return p.marketPath }
func (p *FilePublisher) SentimentPath() string { return p.sentimentPath }

func (p *FilePublisher) PublishMarket(ctx context.Context, snap domain.MarketSnapshot) error {
	return writeJSON(p.marketPath, MarketFile{
		Version:     FormatVersion,
		PublishedAt: snap.PublishedAt,
		Exchanges:   snap.State,
	})
}

func (p *FilePublisher) PublishSentiment(ctx context.Context, summary domain.SentimentSummary) error {
	return writeJSON(p.sentimentPath, SentimentFile{
		Version:   FormatVersion,
		Sentiment: summary,
	})
}

func writeJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, path, err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrPersistence, dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistence, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersistence, path, err)
	}
	return nil
}

// ReadMarket loads a market snapshot. ok is false when the file does not
// exist yet, which callers treat as "no data yet".
func ReadMarket(path string) (MarketFile, bool, error) {
	var f MarketFile
	ok, err := readJSON(path, &f)
	if err != nil || !ok {
		return MarketFile{}, ok, err
	}
	if f.Exchanges == nil {
		f.Exchanges = domain.AggregateState{}
	}
	return f, true, nil
}

// ReadSentiment loads a sentiment snapshot, see ReadMarket.
func ReadSentiment(path string) (SentimentFile, bool, error) {
	var f SentimentFile
	ok, err := readJSON(path, &f)
	if err != nil || !ok {
		return SentimentFile{}, ok, err
	}
	return f, true, nil
}

func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	if head.Version != FormatVersion {
		return false, fmt.Errorf("%s: unsupported snapshot version %d", path, head.Version)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

var _ port.Publisher = (*FilePublisher)(nil)
