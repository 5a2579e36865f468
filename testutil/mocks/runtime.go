// MockRuntime 的 Agent Runtime 测试模拟实现。
//
// 支持按参与者排队发言、固定评估文本、错误注入与调用记录。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/roundtable/agent/runtime"
)

// CallKind 调用类型
type CallKind string

const (
	CallTurn       CallKind = "turn"
	CallAssessment CallKind = "assessment"
	CallBroadcast  CallKind = "broadcast"
)

// Call 记录单次调用
type Call struct {
	Kind        CallKind
	Participant string
	Prompt      string
}

// MockRuntime 是 runtime.Runtime 的模拟实现
type MockRuntime struct {
	mu sync.Mutex

	assessments map[string]string
	turns       map[string][]*runtime.Output
	turnErrs    map[string]error
	assessErrs  map[string]error
	broadcastFn func(ctx context.Context, participant, text string) error
	turnFn      func(ctx context.Context, participant, prompt string) (*runtime.Output, error)

	calls  []Call
	memory map[string][]string
}

// NewMockRuntime 创建新的 MockRuntime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		assessments: make(map[string]string),
		turns:       make(map[string][]*runtime.Output),
		turnErrs:    make(map[string]error),
		assessErrs:  make(map[string]error),
		memory:      make(map[string][]string),
	}
}

// --- Builder 方法 ---

// WithAssessment 设置参与者的固定评估文本
func (m *MockRuntime) WithAssessment(participant, raw string) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[participant] = raw
	return m
}

// WithAssessmentError 让参与者的评估调用失败
func (m *MockRuntime) WithAssessmentError(participant string, err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessErrs[participant] = err
	return m
}

// WithTurns 为参与者排队文本发言，用尽后返回默认发言
func (m *MockRuntime) WithTurns(participant string, texts ...string) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.turns[participant] = append(m.turns[participant], runtime.TextOutput(t))
	}
	return m
}

// WithOutputs 为参与者排队原始输出
func (m *MockRuntime) WithOutputs(participant string, outputs ...*runtime.Output) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[participant] = append(m.turns[participant], outputs...)
	return m
}

// WithTurnError 让参与者的发言调用一直失败
func (m *MockRuntime) WithTurnError(participant string, err error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnErrs[participant] = err
	return m
}

// WithTurnFunc 设置自定义发言函数，优先于排队响应
func (m *MockRuntime) WithTurnFunc(fn func(ctx context.Context, participant, prompt string) (*runtime.Output, error)) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnFn = fn
	return m
}

// WithBroadcastFunc 设置自定义记忆广播函数
func (m *MockRuntime) WithBroadcastFunc(fn func(ctx context.Context, participant, text string) error) *MockRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastFn = fn
	return m
}

// --- runtime.Runtime 实现 ---

// GenerateTurn 实现 runtime.Runtime
func (m *MockRuntime) GenerateTurn(ctx context.Context, participant, prompt string) (*runtime.Output, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Kind: CallTurn, Participant: participant, Prompt: prompt})
	fn := m.turnFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, participant, prompt)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.turnErrs[participant]; err != nil {
		return nil, err
	}
	if queue := m.turns[participant]; len(queue) > 0 {
		m.turns[participant] = queue[1:]
		return queue[0], nil
	}
	return runtime.TextOutput(fmt.Sprintf("%s shares a considered view on this.", participant)), nil
}

// GenerateAssessment 实现 runtime.Runtime
func (m *MockRuntime) GenerateAssessment(ctx context.Context, participant, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Kind: CallAssessment, Participant: participant, Prompt: prompt})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.assessErrs[participant]; err != nil {
		return "", err
	}
	if raw, ok := m.assessments[participant]; ok {
		return raw, nil
	}
	return Ratings(0, 0, 0), nil
}

// BroadcastMemoryUpdate 实现 runtime.Runtime
func (m *MockRuntime) BroadcastMemoryUpdate(ctx context.Context, participant, text string) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Kind: CallBroadcast, Participant: participant, Prompt: text})
	fn := m.broadcastFn
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, participant, text); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.memory[participant] = append(m.memory[participant], text)
	return nil
}

// --- 调用记录 ---

// Calls 返回全部调用记录
func (m *MockRuntime) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsOf 返回指定类型的调用记录
func (m *MockRuntime) CallsOf(kind CallKind) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Memory 返回参与者收到的记忆更新
func (m *MockRuntime) Memory(participant string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.memory[participant]...)
}

// Ratings 生成评估文本：前五项均为 each，外加 urgency 与 group importance
func Ratings(each, urgency, group float64) string {
	return fmt.Sprintf(
		"SELF_IMPORTANCE: %g\nPERCEIVED_GAP: %g\nUNIQUE_PERSPECTIVE: %g\nEMOTIONAL_INVESTMENT: %g\nEXPERTISE_RELEVANCE: %g\nURGENCY: %g\nGROUP_IMPORTANCE: %g\n",
		each, each, each, each, each, urgency, group,
	)
}
