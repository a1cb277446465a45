package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralttt/gameserver/models"
)

func TestEvaluate_RowWin(t *testing.T) {
	board := []string{
		"X", "X", "X",
		"O", "O", "",
		"", "", "",
	}
	result := Evaluate(board, 3)
	assert.Equal(t, "X", result.Winner)
	assert.Equal(t, []int{0, 1, 2}, result.WinningCells)
}

func TestEvaluate_EveryLine(t *testing.T) {
	for n := 3; n <= 10; n++ {
		for _, line := range Lines(n) {
			board := make([]string, n*n)
			for _, idx := range line {
				board[idx] = "O"
			}
			result := Evaluate(board, n)
			require.Equal(t, "O", result.Winner, "n=%d line=%v", n, line)
			require.Equal(t, line, result.WinningCells, "n=%d", n)
		}
	}
}

func TestEvaluate_ColumnAndDiagonals(t *testing.T) {
	col := []string{
		"O", "X", "",
		"O", "X", "",
		"", "X", "",
	}
	assert.Equal(t, "X", Evaluate(col, 3).Winner)
	assert.Equal(t, []int{1, 4, 7}, Evaluate(col, 3).WinningCells)

	diag := []string{
		"X", "O", "",
		"O", "X", "",
		"", "", "X",
	}
	assert.Equal(t, []int{0, 4, 8}, Evaluate(diag, 3).WinningCells)

	anti := []string{
		"", "O", "X",
		"O", "X", "",
		"X", "", "",
	}
	assert.Equal(t, []int{2, 4, 6}, Evaluate(anti, 3).WinningCells)
}

// 满盘无胜利线必须判平局，所有棋盘尺寸一致
func TestEvaluate_DrawAllSizes(t *testing.T) {
	for n := 3; n <= 10; n++ {
		board := drawBoard(n)
		require.Empty(t, Evaluate(board, n).WinningCells)
		result := Evaluate(board, n)
		require.Equal(t, Draw, result.Winner, "n=%d board should be a draw", n)
		require.NotNil(t, result.WinningCells)
		require.Len(t, result.WinningCells, 0)
	}
}

// drawBoard 构造一个满盘且无任何胜利线的棋盘：行内 XXOO 周期重复，
// 相邻两行错开两列。任何行、列、对角线上最多连续两个相同符号。
func drawBoard(n int) []string {
	board := make([]string, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if (col+2*row)%4 < 2 {
				board[row*n+col] = "X"
			} else {
				board[row*n+col] = "O"
			}
		}
	}
	return board
}

func TestEvaluate_InProgress(t *testing.T) {
	board := []string{
		"X", "", "",
		"", "O", "",
		"", "", "",
	}
	result := Evaluate(board, 3)
	assert.Equal(t, "", result.Winner)
	assert.Nil(t, result.WinningCells)
}

// 两次判定同一棋盘必须返回相同结果，验证按 n 缓存的线集合
// 不会在调用之间泄漏状态
func TestEvaluate_Idempotent(t *testing.T) {
	board := []string{
		"X", "X", "X",
		"O", "O", "",
		"", "", "",
	}
	first := Evaluate(board, 3)
	second := Evaluate(board, 3)
	assert.Equal(t, first, second)

	// 换个尺寸再回来，确认缓存键隔离
	Evaluate(make([]string, 25), 5)
	third := Evaluate(board, 3)
	assert.Equal(t, first, third)
}

func TestLines_Shape(t *testing.T) {
	for n := 3; n <= 10; n++ {
		lines := Lines(n)
		require.Len(t, lines, 2*n+2, "n=%d", n)
		for _, line := range lines {
			require.Len(t, line, n)
		}
	}
}

func TestReplayBoard(t *testing.T) {
	history := []models.Move{
		{Index: 0, Symbol: "X"},
		{Index: 4, Symbol: "O"},
		{Index: 8, Symbol: "X"},
	}
	board := ReplayBoard(history, 3)
	assert.Equal(t, []string{"X", "", "", "", "O", "", "", "", "X"}, board)
}

func TestCurrentPlayer(t *testing.T) {
	assert.Equal(t, "X", CurrentPlayer(0))
	assert.Equal(t, "O", CurrentPlayer(1))
	assert.Equal(t, "X", CurrentPlayer(2))
}
