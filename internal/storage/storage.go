package storage

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/types"
)

// Storage is the interface for all export backends.
type Storage interface {
	// Store persists a batch of snapshots.
	Store(snapshots []*Snapshot) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Snapshot is one region's ranked listings at a point in time.
type Snapshot struct {
	Region    assembler.RegionInfo `json:"region"    bson:"region"`
	Source    string               `json:"source"    bson:"source"`
	Timestamp string               `json:"timestamp" bson:"timestamp"`
	Checksum  string               `json:"checksum"  bson:"checksum"`
	Count     int                  `json:"count"     bson:"count"`
	Listings  []*types.Listing     `json:"games"     bson:"games"`
}

// NewSnapshot captures a success payload for export.
func NewSnapshot(p *assembler.Success) *Snapshot {
	return &Snapshot{
		Region:    p.Region,
		Source:    p.Source,
		Timestamp: p.Timestamp,
		Checksum:  Checksum(p.Games),
		Count:     p.Count,
		Listings:  p.Games,
	}
}

// Checksum fingerprints the ranked content of listings. Two snapshots with
// the same order, ids and prices share a checksum regardless of timestamp.
func Checksum(listings []*types.Listing) string {
	d := xxhash.New()
	for _, l := range listings {
		d.WriteString(strconv.Itoa(l.Rank))
		d.WriteString("\x1f")
		d.WriteString(l.ID)
		d.WriteString("\x1f")
		d.WriteString(l.Title)
		d.WriteString("\x1f")
		d.WriteString(l.Price)
		d.WriteString("\x1e")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// New opens the backend named by cfg.Type. A file backend with a Mongo URI
// configured also mirrors snapshots to MongoDB.
func New(cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	var (
		primary Storage
		err     error
	)

	switch cfg.Type {
	case "json":
		primary, err = NewJSONStorage(cfg.OutputPath, logger)
	case "jsonl":
		primary, err = NewJSONLStorage(cfg.OutputPath, logger)
	case "csv":
		primary, err = NewCSVStorage(cfg.OutputPath, logger)
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	default:
		return nil, &types.StorageError{Backend: cfg.Type, Err: fmt.Errorf("unsupported storage type")}
	}
	if err != nil {
		return nil, &types.StorageError{Backend: cfg.Type, Err: err}
	}

	if cfg.MongoURI == "" {
		return primary, nil
	}

	mirror, err := NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	if err != nil {
		primary.Close()
		return nil, err
	}
	return NewMultiStorage([]Storage{primary, mirror}, logger), nil
}
