package memory

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/ffarchive/core/cache"
)

// DefaultBlocks is the default number of blocks a BlockSource keeps.
const DefaultBlocks = 256

// BlockSource wraps a container with an in-memory cache of fixed-size
// blocks. Index tables and neighboring entries of remote containers are
// read many times in small pieces; blocks turn those into a few range
// requests. Concurrent misses on one block share a single fetch.
// Blocks are kept in a 2Q cache so one long sequential extract does not
// flush the index blocks that every lookup touches.
//
// BlockSource implements the archive ByteSource interface.
type BlockSource struct {
	src       cache.ByteSource
	blockSize int64
	blocks    *lru.TwoQueueCache[int64, []byte]
	fetches   singleflight.Group
}

// BlockOption configures a BlockSource.
type BlockOption func(*blockConfig)

type blockConfig struct {
	blockSize int64
	blocks    int
}

// WithBlockSize sets the size in bytes of each cached block.
func WithBlockSize(n int64) BlockOption {
	return func(cfg *blockConfig) {
		cfg.blockSize = n
	}
}

// WithBlocks sets how many blocks are kept.
func WithBlocks(n int) BlockOption {
	return func(cfg *blockConfig) {
		cfg.blocks = n
	}
}

// NewBlockSource wraps src with a block cache.
func NewBlockSource(src cache.ByteSource, opts ...BlockOption) (*BlockSource, error) {
	if src == nil {
		return nil, errors.New("block cache: source is nil")
	}
	cfg := blockConfig{blockSize: cache.DefaultBlockSize, blocks: DefaultBlocks}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 || cfg.blockSize > math.MaxInt32 {
		return nil, fmt.Errorf("block cache: invalid block size %d", cfg.blockSize)
	}
	if cfg.blocks <= 0 {
		return nil, errors.New("block cache: block count must be > 0")
	}
	blocks, err := lru.New2Q[int64, []byte](cfg.blocks)
	if err != nil {
		return nil, fmt.Errorf("block cache: %w", err)
	}
	return &BlockSource{src: src, blockSize: cfg.blockSize, blocks: blocks}, nil
}

// ReadAt reads len(p) bytes at off, filling missing blocks from the
// wrapped source.
func (s *BlockSource) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	size := s.src.Size()
	if off >= size {
		return 0, io.EOF
	}
	expected := min(int64(len(p)), size-off)

	var n int64
	for index := off / s.blockSize; index <= (off+expected-1)/s.blockSize; index++ {
		blockStart := index * s.blockSize
		data, err := s.block(index, blockStart, min(blockStart+s.blockSize, size)-blockStart)
		if err != nil {
			return int(n), err
		}
		copyStart := max(off, blockStart)
		copyEnd := min(off+expected, blockStart+int64(len(data)))
		n += int64(copy(p[copyStart-off:copyEnd-off], data[copyStart-blockStart:]))
	}

	if expected < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// Size returns the size of the wrapped source.
func (s *BlockSource) Size() int64 {
	return s.src.Size()
}

// SourceID returns the identifier of the wrapped source.
func (s *BlockSource) SourceID() string {
	return s.src.SourceID()
}

// Cached returns the number of blocks currently held.
func (s *BlockSource) Cached() int {
	return s.blocks.Len()
}

func (s *BlockSource) block(index, off, length int64) ([]byte, error) {
	if data, ok := s.blocks.Get(index); ok {
		return data, nil
	}
	v, err, _ := s.fetches.Do(strconv.FormatInt(index, 10), func() (any, error) {
		data, err := s.fetch(off, length)
		if err != nil {
			return nil, err
		}
		s.blocks.Add(index, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

func (s *BlockSource) fetch(off, length int64) ([]byte, error) {
	if rr, ok := s.src.(cache.RangeReader); ok {
		rc, err := rr.ReadRange(off, length)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) != length {
			return nil, io.ErrUnexpectedEOF
		}
		return data, nil
	}

	buf := make([]byte, length)
	n, err := s.src.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if int64(n) != length {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}
