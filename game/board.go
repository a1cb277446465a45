// game/board.go
package game

import (
	"sync"

	"github.com/neuralttt/gameserver/models"
)

// 棋盘符号，X 永远先手
const (
	X     = "X"
	O     = "O"
	Empty = ""
)

// Draw 是平局判定结果，不是棋盘符号
const Draw = "Draw"

// Result 是单次胜负判定的输出
type Result struct {
	Winner       string `json:"winner"` // "X", "O", "Draw" or ""
	WinningCells []int  `json:"winningCells"`
}

var (
	linesMutex sync.RWMutex
	linesCache = make(map[int][][]int)
)

// Lines 返回 n x n 棋盘的所有胜利线：n 行、n 列、两条对角线。
// 胜负判定在 minimax 热路径里每步都要调用，线集合按 n 缓存。
func Lines(n int) [][]int {
	linesMutex.RLock()
	if lines, ok := linesCache[n]; ok {
		linesMutex.RUnlock()
		return lines
	}
	linesMutex.RUnlock()

	lines := make([][]int, 0, 2*n+2)

	for row := 0; row < n; row++ {
		line := make([]int, n)
		for col := 0; col < n; col++ {
			line[col] = row*n + col
		}
		lines = append(lines, line)
	}

	for col := 0; col < n; col++ {
		line := make([]int, n)
		for row := 0; row < n; row++ {
			line[row] = row*n + col
		}
		lines = append(lines, line)
	}

	diag1 := make([]int, n)
	diag2 := make([]int, n)
	for i := 0; i < n; i++ {
		diag1[i] = i * (n + 1)
		diag2[i] = (i + 1) * (n - 1)
	}
	lines = append(lines, diag1, diag2)

	linesMutex.Lock()
	linesCache[n] = lines
	linesMutex.Unlock()

	return lines
}

// Evaluate 判定 n x n 棋盘的胜负。board 长度必须为 n*n，由调用方保证。
// 线的检查顺序固定：行、列、主对角线、副对角线，命中第一条即返回。
func Evaluate(board []string, n int) Result {
	for _, line := range Lines(n) {
		first := board[line[0]]
		if first == Empty {
			continue
		}
		won := true
		for _, idx := range line[1:] {
			if board[idx] != first {
				won = false
				break
			}
		}
		if won {
			return Result{Winner: first, WinningCells: line}
		}
	}

	for _, cell := range board {
		if cell == Empty {
			return Result{}
		}
	}
	return Result{Winner: Draw, WinningCells: []int{}}
}

// ReplayBoard 按顺序重放历史，重建出当前棋盘。
// 历史顺序是游戏状态的唯一决定因素（event-sourced）。
func ReplayBoard(history []models.Move, n int) []string {
	board := make([]string, n*n)
	for _, mv := range history {
		if mv.Index >= 0 && mv.Index < len(board) {
			board[mv.Index] = mv.Symbol
		}
	}
	return board
}

// CurrentPlayer X 先手，历史长度为偶数时轮到 X
func CurrentPlayer(historyLen int) string {
	if historyLen%2 == 0 {
		return X
	}
	return O
}

// NextSymbol 根据历史长度推导下一步落子的符号
func NextSymbol(historyLen int) string {
	return CurrentPlayer(historyLen)
}

// EmptyCells 返回所有空格下标，按扫描顺序
func EmptyCells(board []string) []int {
	var cells []int
	for i, cell := range board {
		if cell == Empty {
			cells = append(cells, i)
		}
	}
	return cells
}
