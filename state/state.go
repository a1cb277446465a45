package state

import (
	"errors"
	"sync"
)

// Phase 房间对局阶段，由棋谱推导：
// Empty（无历史）-> InProgress（有历史无胜负）-> Concluded（有胜负或平局）
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseInProgress
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseInProgress:
		return "in_progress"
	case PhaseConcluded:
		return "concluded"
	}
	return "unknown"
}

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// PhaseOf 从历史长度和胜负判定推导当前阶段
func PhaseOf(historyLen int, winner string) Phase {
	switch {
	case winner != "":
		return PhaseConcluded
	case historyLen > 0:
		return PhaseInProgress
	default:
		return PhaseEmpty
	}
}

// transitions 合法的阶段跳转。落子推进 Empty/InProgress，撤销可以
// 从 Concluded 退回 InProgress 甚至 Empty，重做是其逆操作，reset
// 从任何阶段强制回 Empty。跳过中间阶段（如 Empty 直达 Concluded,
// 3x3 下至少要 5 步才可能分出胜负）说明棋谱被绕过存储改写了。
var transitions = map[Phase][]Phase{
	PhaseEmpty:      {PhaseEmpty, PhaseInProgress},
	PhaseInProgress: {PhaseEmpty, PhaseInProgress, PhaseConcluded},
	PhaseConcluded:  {PhaseEmpty, PhaseInProgress, PhaseConcluded},
}

// Machine 跟踪一个房间观测到的阶段序列并校验跳转
type Machine struct {
	current Phase
	mutex   sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{current: PhaseEmpty}
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Observe 记录同步后观测到的新阶段；非法跳转返回
// ErrTransitionNotAllowed 且保持原阶段不变
func (m *Machine) Observe(next Phase) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return ErrTransitionNotAllowed
}

// Reset 强制回到 Empty（reset_game 或房间回收）
func (m *Machine) Reset() {
	m.mutex.Lock()
	m.current = PhaseEmpty
	m.mutex.Unlock()
}
