// Package book implements an opening book keyed by position hash.
//
// The file format is a sequence of 16-byte big-endian entries:
//
//	8 bytes: Zobrist hash of the position
//	2 bytes: move (square index 0-63, 64 for pass)
//	2 bytes: weight
//	4 bytes: reserved
package book

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/hailam/reversi/internal/board"
)

const entrySize = 16

// BookEntry represents a single book entry.
type BookEntry struct {
	Move   board.Move
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[uint64][]BookEntry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]BookEntry),
	}
}

// Load loads a book from a file.
func Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadReader(file)
}

// LoadReader loads a book from a reader. Entries with an invalid move are skipped.
func LoadReader(r io.Reader) (*Book, error) {
	book := New()
	var entry [entrySize]byte

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated book entry")
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		move := binary.BigEndian.Uint16(entry[8:10])
		weight := binary.BigEndian.Uint16(entry[10:12])

		if move > uint16(board.PassMove) {
			continue
		}
		book.entries[key] = append(book.entries[key], BookEntry{
			Move:   board.Move(move),
			Weight: weight,
		})
	}

	return book, nil
}

// Add records move for pos with the given weight, replacing an existing
// weight for the same move.
func (b *Book) Add(pos *board.Position, move board.Move, weight uint16) error {
	if !pos.IsLegal(move) {
		return fmt.Errorf("%w: %s", board.ErrIllegalMove, move)
	}
	entries := b.entries[pos.Hash]
	for i := range entries {
		if entries[i].Move == move {
			entries[i].Weight = weight
			return nil
		}
	}
	b.entries[pos.Hash] = append(entries, BookEntry{Move: move, Weight: weight})
	return nil
}

// Probe looks up a position in the book and returns a move using weighted
// random selection. Moves that are not legal in pos are never returned.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	totalWeight := uint32(0)
	for _, e := range entries {
		totalWeight += uint32(e.Weight)
	}

	if totalWeight == 0 {
		// All weights are 0, just pick the first
		return entries[0].Move, true
	}

	r := rand.Uint32() % totalWeight
	cumulative := uint32(0)
	for _, e := range entries {
		cumulative += uint32(e.Weight)
		if r < cumulative {
			return e.Move, true
		}
	}

	return entries[0].Move, true
}

// ProbeAll returns the legal book moves for the position, sorted by weight.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}

	entries := b.entries[pos.Hash]
	result := make([]BookEntry, 0, len(entries))
	for _, e := range entries {
		if pos.IsLegal(e.Move) {
			result = append(result, e)
		}
	}

	// Sort by weight (highest first)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Write serializes the book, ordered by key.
func (b *Book) Write(w io.Writer) error {
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bw := bufio.NewWriter(w)
	var entry [entrySize]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(entry[0:8], k)
			binary.BigEndian.PutUint16(entry[8:10], uint16(e.Move))
			binary.BigEndian.PutUint16(entry[10:12], e.Weight)
			if _, err := bw.Write(entry[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Save writes the book to a file.
func (b *Book) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
