// Package fen splits and normalises FEN strings.
package fen

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidFEN indicates the FEN string is malformed.
var ErrInvalidFEN = errors.New("fen: invalid notation")

// Fields are the six fields of a FEN record.
type Fields struct {
	Placement  string
	SideToMove string
	Castling   string
	EnPassant  string
	HalfMove   int
	FullMove   int
}

// Parse splits fen into its fields. The two move counters may be absent,
// in which case they default to 0 and 1.
func Parse(fen string) (Fields, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return Fields{}, ErrInvalidFEN
	}
	if !isValidPiecePlacement(parts[0]) {
		return Fields{}, ErrInvalidFEN
	}
	if parts[1] != "w" && parts[1] != "b" {
		return Fields{}, ErrInvalidFEN
	}

	f := Fields{
		Placement:  parts[0],
		SideToMove: parts[1],
		Castling:   parts[2],
		EnPassant:  parts[3],
		FullMove:   1,
	}
	var err error
	if len(parts) > 4 {
		if f.HalfMove, err = strconv.Atoi(parts[4]); err != nil || f.HalfMove < 0 {
			return Fields{}, ErrInvalidFEN
		}
	}
	if len(parts) > 5 {
		if f.FullMove, err = strconv.Atoi(parts[5]); err != nil || f.FullMove < 1 {
			return Fields{}, ErrInvalidFEN
		}
	}
	return f, nil
}

// Normalize returns the first four fields of fen. Positions that differ
// only in their move counters normalise to the same string, which makes
// the result usable as an evaluation cache key.
func Normalize(fen string) (string, error) {
	f, err := Parse(fen)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{f.Placement, f.SideToMove, f.Castling, f.EnPassant}, " "), nil
}

// isValidPiecePlacement validates the piece placement part of a FEN.
func isValidPiecePlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}

	for _, rank := range ranks {
		squares := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				squares += int(ch - '0')
			case strings.ContainsRune("PNBRQKpnbrqk", ch):
				squares++
			default:
				return false
			}
		}
		if squares != 8 {
			return false
		}
	}
	return true
}
