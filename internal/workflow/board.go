package workflow

import (
	"maps"
	"sync"
)

// ReviewBoard 经理本地的审批决定表,提交前不影响任务状态
type ReviewBoard struct {
	mu        sync.RWMutex
	decisions map[string]map[string]Decision // batchKey -> taskID -> decision
}

// NewReviewBoard 创建审批决定表
func NewReviewBoard() *ReviewBoard {
	return &ReviewBoard{decisions: make(map[string]map[string]Decision)}
}

// SetDecision 记录单个任务的决定
func (b *ReviewBoard) SetDecision(batchKey, taskID string, d Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batch(batchKey)[taskID] = d
}

// ApplyAll 对批次内所有任务应用同一决定,之后仍可逐个覆盖
func (b *ReviewBoard) ApplyAll(batchKey string, taskIDs []string, d Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.batch(batchKey)
	for _, id := range taskIDs {
		m[id] = d
	}
}

// Decision 返回任务的决定,未记录时为 pending
func (b *ReviewBoard) Decision(batchKey, taskID string) Decision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if d, ok := b.decisions[batchKey][taskID]; ok {
		return d
	}
	return Decision{Status: DecisionPending}
}

// Decisions 返回批次决定的副本
func (b *ReviewBoard) Decisions(batchKey string) map[string]Decision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := maps.Clone(b.decisions[batchKey])
	if out == nil {
		out = make(map[string]Decision)
	}
	return out
}

// CanSubmitBatch 批次非空且每个任务都有非 pending 的决定
func (b *ReviewBoard) CanSubmitBatch(batchKey string, taskIDs []string) bool {
	if len(taskIDs) == 0 {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.decisions[batchKey]
	for _, id := range taskIDs {
		if !m[id].Decided() {
			return false
		}
	}
	return true
}

// Clear 清除批次的全部决定
func (b *ReviewBoard) Clear(batchKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.decisions, batchKey)
}

func (b *ReviewBoard) batch(batchKey string) map[string]Decision {
	m, ok := b.decisions[batchKey]
	if !ok {
		m = make(map[string]Decision)
		b.decisions[batchKey] = m
	}
	return m
}

// Boards 按经理隔离的审批决定表
type Boards struct {
	mu     sync.Mutex
	boards map[string]*ReviewBoard
}

// NewBoards 创建决定表集合
func NewBoards() *Boards {
	return &Boards{boards: make(map[string]*ReviewBoard)}
}

// For 返回经理的决定表,不存在时创建
func (b *Boards) For(managerID string) *ReviewBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	board, ok := b.boards[managerID]
	if !ok {
		board = NewReviewBoard()
		b.boards[managerID] = board
	}
	return board
}
