package game

import "github.com/tabla-live/tabla-server/pkg/tabladto"

// View projects the game into its public API shape.
func (g *Game) View() *tabladto.GameView {
	return &tabladto.GameView{
		ID:          g.ID,
		PlayerA:     g.PlayerA,
		PlayerB:     g.PlayerB,
		CurrentTurn: g.CurrentTurn,
		Status:      string(g.Status),
		Phase:       string(g.Phase()),
		Points:      g.Board.Points,
		BarA:        g.Board.BarA,
		BarB:        g.Board.BarB,
		OffA:        g.OffA,
		OffB:        g.OffB,
		Die1:        g.Die1,
		Die2:        g.Die2,
		DiceRolled:  g.DiceRolled,
		Winner:      g.Winner,
		Stake:       g.Stake,
		Claimed:     g.Claimed,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		EndedAt:     g.EndedAt,
	}
}
