package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasyMove(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	board := []string{"X", "O", "X", "O", "X", "O", "X", "O", ""}
	assert.Equal(t, 8, EasyMove(board, rng))

	full := []string{"X", "O", "X", "O", "X", "O", "X", "O", "X"}
	assert.Equal(t, -1, EasyMove(full, rng))

	empty := make([]string, 9)
	for i := 0; i < 50; i++ {
		idx := EasyMove(empty, rng)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 9)
	}
}

// 确定档（mistakeChance=0）必须先挡住对手的制胜点
func TestHeuristicMove_Block(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	board := []string{
		"X", "X", "",
		"O", "", "",
		"", "", "",
	}
	idx := HeuristicMove(board, 3, "O", "X", 0, rng)
	assert.Equal(t, 2, idx)
}

// 自己能赢时优先赢，而不是去挡
func TestHeuristicMove_WinBeforeBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	board := []string{
		"X", "X", "",
		"O", "O", "",
		"", "", "",
	}
	idx := HeuristicMove(board, 3, "O", "X", 0, rng)
	assert.Equal(t, 5, idx)
}

func TestHeuristicMove_CenterThenFirstEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	board := []string{
		"X", "", "",
		"", "", "",
		"", "", "",
	}
	assert.Equal(t, 4, HeuristicMove(board, 3, "O", "X", 0, rng))

	centerTaken := []string{
		"", "", "",
		"", "X", "",
		"", "", "",
	}
	assert.Equal(t, 0, HeuristicMove(centerTaken, 3, "O", "X", 0, rng))
}

func TestHeuristicMove_DoesNotMutateBoard(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	board := []string{
		"X", "X", "",
		"O", "", "",
		"", "", "",
	}
	want := append([]string(nil), board...)
	HeuristicMove(board, 3, "O", "X", 0, rng)
	assert.Equal(t, want, board)
}

// 人类 X 先占角，专家档 O 的唯一不败应手是中心
func TestExpertMove_CornerOpening(t *testing.T) {
	board := []string{
		"X", "", "",
		"", "", "",
		"", "", "",
	}
	assert.Equal(t, 4, ExpertMove(board, 3, "O", "X"))
}

func TestExpertMove_TakesImmediateWin(t *testing.T) {
	board := []string{
		"O", "O", "",
		"X", "X", "O",
		"X", "", "",
	}
	assert.Equal(t, 2, ExpertMove(board, 3, "O", "X"))
}

func TestExpertMove_BlocksOnLargerBoard(t *testing.T) {
	// 4x4：X 已有三连，O 必须堵住第 3 格
	board := make([]string, 16)
	board[0], board[1], board[2] = "X", "X", "X"
	board[4], board[5] = "O", "O"
	assert.Equal(t, 3, ExpertMove(board, 4, "O", "X"))
}

// 两个完美玩家在 3x3 只能下成平局
func TestExpertMove_PerfectPlayDraws(t *testing.T) {
	board := make([]string, 9)
	players := [2]string{"X", "O"}
	for turn := 0; ; turn++ {
		result := Evaluate(board, 3)
		if result.Winner != "" {
			require.Equal(t, Draw, result.Winner)
			return
		}
		me := players[turn%2]
		opp := players[(turn+1)%2]
		idx := ExpertMove(board, 3, me, opp)
		require.GreaterOrEqual(t, idx, 0)
		require.Equal(t, Empty, board[idx])
		board[idx] = me
	}
}

func TestEvaluatePosition_Scoring(t *testing.T) {
	board := []string{
		"O", "O", "",
		"", "", "",
		"", "", "X",
	}
	// O 的行/列/对角线贡献正分，X 的贡献负分，混合线为 0
	score := evaluatePosition(board, 3, "O", "X")
	assert.Greater(t, score, 0)

	mirror := evaluatePosition(board, 3, "X", "O")
	assert.Equal(t, -score, mirror)
}
