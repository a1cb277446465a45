// game/ai.go
package game

import (
	"math/rand"
)

// AI 落子选择，三档难度，全部是对棋盘数组的纯函数。
// rng 由调用方传入，固定种子即可得到可复现的对局。

const (
	winScore  = 100000
	loseScore = -100000
)

// EasyMove 在空格中均匀随机，棋盘已满返回 -1
func EasyMove(board []string, rng *rand.Rand) int {
	empty := EmptyCells(board)
	if len(empty) == 0 {
		return -1
	}
	return empty[rng.Intn(len(empty))]
}

// HeuristicMove 普通/困难档：按 mistakeChance 概率走随机步，否则
// 依次尝试直接获胜、挡对手、占中心、取第一个空格。
// mistakeChance 为 0 时完全确定（困难档）。
func HeuristicMove(board []string, n int, aiPlayer, humanPlayer string, mistakeChance float64, rng *rand.Rand) int {
	empty := EmptyCells(board)
	if len(empty) == 0 {
		return -1
	}

	if mistakeChance > 0 && rng.Float64() < mistakeChance {
		return empty[rng.Intn(len(empty))]
	}

	for _, idx := range empty {
		board[idx] = aiPlayer
		won := Evaluate(board, n).Winner == aiPlayer
		board[idx] = Empty
		if won {
			return idx
		}
	}

	for _, idx := range empty {
		board[idx] = humanPlayer
		blocks := Evaluate(board, n).Winner == humanPlayer
		board[idx] = Empty
		if blocks {
			return idx
		}
	}

	center := (n * n) / 2
	if board[center] == Empty {
		return center
	}

	return empty[0]
}

// ExpertMove 专家档：3x3 全深度精确 minimax，更大棋盘带深度截断
// 和启发式局面评估。两者都做 alpha-beta 剪枝。
func ExpertMove(board []string, n int, aiPlayer, humanPlayer string) int {
	if n == 3 {
		_, idx := minimax3(board, aiPlayer, aiPlayer, humanPlayer, loseScore, winScore)
		return idx
	}

	var maxDepth int
	switch {
	case n == 4:
		maxDepth = 5
	case n == 5:
		maxDepth = 4
	case n <= 7:
		maxDepth = 3
	default:
		maxDepth = 2
	}

	_, idx := minimaxN(board, n, 0, maxDepth, true, aiPlayer, humanPlayer, loseScore, winScore)
	return idx
}

// minimax3 3x3 精确搜索，终局分 {+1, -1, 0}
func minimax3(board []string, player, aiPlayer, humanPlayer string, alpha, beta int) (score, index int) {
	result := Evaluate(board, 3)
	switch result.Winner {
	case aiPlayer:
		return 1, -1
	case humanPlayer:
		return -1, -1
	case Draw:
		return 0, -1
	}

	maximizing := player == aiPlayer
	bestScore := loseScore - 1
	if !maximizing {
		bestScore = winScore + 1
	}
	bestIndex := -1

	next := humanPlayer
	if !maximizing {
		next = aiPlayer
	}

	for i := 0; i < 9; i++ {
		if board[i] != Empty {
			continue
		}
		board[i] = player
		moveScore, _ := minimax3(board, next, aiPlayer, humanPlayer, alpha, beta)
		board[i] = Empty

		if maximizing {
			if moveScore > bestScore {
				bestScore, bestIndex = moveScore, i
			}
			if moveScore > alpha {
				alpha = moveScore
			}
		} else {
			if moveScore < bestScore {
				bestScore, bestIndex = moveScore, i
			}
			if moveScore < beta {
				beta = moveScore
			}
		}
		if beta <= alpha {
			break
		}
	}

	return bestScore, bestIndex
}

// evaluatePosition 截断深度处的局面分：每条线若只有己方棋子计
// +10^数量，只有对方棋子计 -10^数量，混合或空线计 0。
func evaluatePosition(board []string, n int, aiPlayer, humanPlayer string) int {
	score := 0
	for _, line := range Lines(n) {
		ai, human := 0, 0
		for _, idx := range line {
			switch board[idx] {
			case aiPlayer:
				ai++
			case humanPlayer:
				human++
			}
		}
		if ai > 0 && human == 0 {
			score += pow10(ai)
		}
		if human > 0 && ai == 0 {
			score -= pow10(human)
		}
	}
	return score
}

func pow10(exp int) int {
	v := 1
	for i := 0; i < exp; i++ {
		v *= 10
	}
	return v
}

// minimaxN NxN 深度受限搜索。终局分 ±100000 压过任何启发分，
// 保证必胜路线优先于局面优势。
func minimaxN(board []string, n, depth, maxDepth int, isMax bool, aiPlayer, humanPlayer string, alpha, beta int) (score, index int) {
	result := Evaluate(board, n)
	switch result.Winner {
	case aiPlayer:
		return winScore, -1
	case humanPlayer:
		return loseScore, -1
	case Draw:
		return 0, -1
	}
	if depth == maxDepth {
		return evaluatePosition(board, n, aiPlayer, humanPlayer), -1
	}

	bestScore := loseScore - 1
	if !isMax {
		bestScore = winScore + 1
	}
	bestIndex := -1

	for _, idx := range EmptyCells(board) {
		if isMax {
			board[idx] = aiPlayer
		} else {
			board[idx] = humanPlayer
		}
		moveScore, _ := minimaxN(board, n, depth+1, maxDepth, !isMax, aiPlayer, humanPlayer, alpha, beta)
		board[idx] = Empty

		if isMax {
			if moveScore > bestScore {
				bestScore, bestIndex = moveScore, idx
			}
			if moveScore > alpha {
				alpha = moveScore
			}
		} else {
			if moveScore < bestScore {
				bestScore, bestIndex = moveScore, idx
			}
			if moveScore < beta {
				beta = moveScore
			}
		}
		if beta <= alpha {
			break
		}
	}

	return bestScore, bestIndex
}
