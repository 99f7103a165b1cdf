package pgnspy

import (
	"io"

	"github.com/discochess/pgnspy/internal/pgnload"
)

// Color is the side to move in a position.
type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// NotMatched is the Position.MovePlayed value for a played move that is not
// among the engine's candidates.
const NotMatched = -1

// Move is one ranked engine candidate for a position.
type Move struct {
	// Move is the candidate in UCI long algebraic notation (e.g. "e2e4").
	Move string `json:"move"`

	// Depth is the search depth the evaluation was reached at.
	Depth int `json:"depth"`

	// Time is the engine-reported search time in milliseconds.
	Time int `json:"time_ms"`

	// Score is in centipawns from the perspective of the side to move.
	Score int `json:"score"`
}

// Position is the engine's view of one ply, before the move was played.
type Position struct {
	// Ply is the 0-based half-move index within the game.
	Ply int `json:"ply"`

	// MoveNumber is the PGN full-move number.
	MoveNumber int `json:"move_number"`

	// ToMove is the side that played PlayedMove.
	ToMove Color `json:"to_move"`

	// FEN is the position before PlayedMove.
	FEN string `json:"fen"`

	// PlayedMove is the move actually played, in UCI notation.
	PlayedMove string `json:"played_move"`

	// TopMoves are the engine candidates ordered by rank, best first.
	TopMoves []Move `json:"top_moves"`

	// MovePlayed is the rank of PlayedMove in TopMoves, or NotMatched.
	MovePlayed int `json:"move_played"`
}

// Game is one analysed game.
type Game struct {
	Event       string     `json:"event"`
	Date        string     `json:"date"`
	White       string     `json:"white"`
	Black       string     `json:"black"`
	Result      string     `json:"result"`
	TimeControl string     `json:"time_control"`
	FileName    string     `json:"file_name,omitempty"`
	Positions   []Position `json:"positions"`
}

// Player returns the name of the player who moved in p.
func (g *Game) Player(p *Position) string {
	return g.playerFor(p.ToMove)
}

func (g *Game) playerFor(c Color) string {
	if c == Black {
		return g.Black
	}
	return g.White
}

// GamePGN is one game waiting for analysis.
type GamePGN struct {
	PGNText  string
	White    string
	Black    string
	FileName string
}

// matchPlayed returns the rank of played among moves, or NotMatched.
func matchPlayed(moves []Move, played string) int {
	for i, m := range moves {
		if m.Move == played {
			return i
		}
	}
	return NotMatched
}

// ReadGames splits a PGN archive into games ready for ProcessGames.
func ReadGames(r io.Reader, fileName string) ([]GamePGN, error) {
	var games []GamePGN
	err := pgnload.Split(r, func(c pgnload.Chunk) error {
		games = append(games, GamePGN{
			PGNText:  c.Text,
			White:    c.White,
			Black:    c.Black,
			FileName: fileName,
		})
		return nil
	})
	return games, err
}
